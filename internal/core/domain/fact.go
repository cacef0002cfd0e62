package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// FactType classifies a Gold fact
type FactType string

const (
	// FactTypeLatestVersionCandidate is a version mention attributed to a vendor
	FactTypeLatestVersionCandidate FactType = "LATEST_VERSION_CANDIDATE"
)

// FactSnippetLength bounds the evidence text stored on a fact.
const FactSnippetLength = 260

// Fact is a single extracted candidate awaiting resolution
type Fact struct {
	ID      string   `json:"fact_id"`
	Vendor  string   `json:"vendor"`
	Type    FactType `json:"fact_type"`
	Value   string   `json:"value"`
	Date    string   `json:"date"`
	Source  Source   `json:"source"`
	SentID  string   `json:"sent_id"`
	URL     string   `json:"url"`
	Snippet string   `json:"snippet"`
}

// NewVersionFact builds the version candidate for vendor found in sentence.
func NewVersionFact(vendor string, sentence *Sentence, value string) *Fact {
	return &Fact{
		ID:      FactID(vendor, sentence.ID, value),
		Vendor:  vendor,
		Type:    FactTypeLatestVersionCandidate,
		Value:   value,
		Date:    sentence.PublishedAt,
		Source:  sentence.Source,
		SentID:  sentence.ID,
		URL:     sentence.URL,
		Snippet: TruncateRunes(sentence.Text, FactSnippetLength),
	}
}

// RankKey returns the ordering key used by resolution.
func (f *Fact) RankKey() RankKey {
	return RankKey{
		Date:            f.Date,
		Semver:          ParseSemver(f.Value),
		PreferredSource: f.Source == SourceOS,
		FactID:          f.ID,
	}
}

// LatestVersion is the resolved Gold row for one vendor
type LatestVersion struct {
	Vendor  string `json:"vendor"`
	Version string `json:"latest_version"`
	Date    string `json:"date"`
	Source  Source `json:"source"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// LatestFromFact projects the winning fact into the latest-version view.
func LatestFromFact(f *Fact) *LatestVersion {
	return &LatestVersion{
		Vendor:  f.Vendor,
		Version: f.Value,
		Date:    f.Date,
		Source:  f.Source,
		URL:     f.URL,
		Snippet: f.Snippet,
	}
}

// RankKey is the total order over candidate facts of one vendor.
// Fields are compared in declaration order.
type RankKey struct {
	// Date is an RFC3339 timestamp; empty sorts lowest
	Date string
	// Semver is the numeric version prefix
	Semver []int
	// PreferredSource is true for the os feed
	PreferredSource bool
	// FactID breaks remaining ties; the smaller id ranks higher
	FactID string
}

// Compare returns a positive number when k ranks above o, negative when it
// ranks below and zero only for identical keys.
func (k RankKey) Compare(o RankKey) int {
	if c := strings.Compare(k.Date, o.Date); c != 0 {
		return c
	}
	if c := CompareSemver(k.Semver, o.Semver); c != 0 {
		return c
	}
	if k.PreferredSource != o.PreferredSource {
		if k.PreferredSource {
			return 1
		}
		return -1
	}
	return strings.Compare(o.FactID, k.FactID)
}

var semverPrefix = regexp.MustCompile(`^\d+(?:\.\d+)*`)

// ParseSemver parses the numeric dot-separated prefix of v.
// "2.10.1-rc2" yields [2 10 1]; a value with no numeric prefix yields [0].
func ParseSemver(v string) []int {
	prefix := semverPrefix.FindString(strings.TrimSpace(v))
	if prefix == "" {
		return []int{0}
	}

	parts := strings.Split(prefix, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			// overflow on absurd inputs; stop at the last good component
			break
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return []int{0}
	}
	return out
}

// CompareSemver compares integer tuples element-wise. When one is a prefix
// of the other the shorter tuple is smaller.
func CompareSemver(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return 1
			}
			return -1
		}
	}
	switch {
	case len(a) > len(b):
		return 1
	case len(a) < len(b):
		return -1
	}
	return 0
}
