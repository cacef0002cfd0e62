package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Keep-filter thresholds
const (
	// MinSentenceLength is the shortest fragment the segmenter emits
	MinSentenceLength = 12
	// MaxSentenceLength drops log dumps and stack traces
	MaxSentenceLength = 600
	// URLLineMaxLength bounds the bare-URL heuristic
	URLLineMaxLength = 120
	// URLLineMinSpaces is how many spaces a short URL line needs to survive
	URLLineMinSpaces = 6
)

// PatchKeywords mark a sentence as talking about a fix.
var PatchKeywords = []string{"patch", "hotfix", "fixed", "security fix", "security patch", "resolved", "addressed"}

// VersionKeywords mark a sentence as talking about a release.
var VersionKeywords = []string{"version", "release", "build", "latest", "changelog"}

var (
	versionPattern = regexp.MustCompile(`(?i)\b\d+\.\d+(?:\.\d+)?(?:[-._]?[a-z0-9]+)?\b`)
	cvePattern     = regexp.MustCompile(`(?i)\bCVE-\d{4}-\d{4,7}\b`)
	urlPattern     = regexp.MustCompile(`(?i)https?://`)
)

// Sentence is a tagged Silver sentence
type Sentence struct {
	ID          string   `json:"sent_id"`
	DocID       string   `json:"doc_id"`
	Source      Source   `json:"source"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	Text        string   `json:"text"`
	TextLC      string   `json:"text_lc"`
	HasCVE      bool     `json:"has_cve"`
	HasPatch    bool     `json:"has_patch"`
	HasVersion  bool     `json:"has_version"`
	Versions    []string `json:"versions"`
	CVEs        []string `json:"cves"`
	Vendors     []string `json:"vendors"`
	VendorCount int      `json:"vendor_count"`
}

// Flags returns the intent flags recorded on the sentence.
func (s *Sentence) Flags() IntentFlags {
	return IntentFlags{CVE: s.HasCVE, Patch: s.HasPatch, Version: s.HasVersion}
}

// IntentFlags are the keyword signals detected in a sentence
type IntentFlags struct {
	CVE     bool
	Patch   bool
	Version bool
}

// Any reports whether at least one flag is set.
func (f IntentFlags) Any() bool {
	return f.CVE || f.Patch || f.Version
}

// DetectIntentFlags tags text with CVE, patch and version signals.
// Keyword checks are substring checks on the lower-cased text, so
// "released" counts as a version signal.
func DetectIntentFlags(text string) IntentFlags {
	lc := strings.ToLower(text)
	return IntentFlags{
		CVE:     strings.Contains(lc, "cve-") || cvePattern.MatchString(text),
		Patch:   containsAny(lc, PatchKeywords),
		Version: containsAny(lc, VersionKeywords),
	}
}

// ExtractVersions returns every dotted version token in text, in order.
func ExtractVersions(text string) []string {
	return versionPattern.FindAllString(text, -1)
}

// ExtractCVEs returns every CVE id in text, upper-cased.
func ExtractCVEs(text string) []string {
	found := cvePattern.FindAllString(text, -1)
	for i, id := range found {
		found[i] = strings.ToUpper(id)
	}
	return found
}

// KeepSentence applies the Silver keep filter.
func KeepSentence(text string, vendorHits []string, flags IntentFlags) bool {
	s := strings.TrimSpace(text)
	if s == "" {
		return false
	}

	length := utf8.RuneCountInString(s)
	if length < URLLineMaxLength && urlPattern.MatchString(s) && strings.Count(s, " ") < URLLineMinSpaces {
		return false
	}
	if length > MaxSentenceLength {
		return false
	}

	return len(vendorHits) > 0 || flags.Any()
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
