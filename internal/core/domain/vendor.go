package domain

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MinVendorLength is the shortest vendor name allowed into matching.
const MinVendorLength = 3

// DefaultSentenceVendorHits is how many vendors a single sentence may carry.
const DefaultSentenceVendorHits = 3

// vendorStopwords are generic release-note terms that never name a vendor.
var vendorStopwords = map[string]struct{}{
	"version": {}, "release": {}, "latest": {}, "patch": {}, "hotfix": {},
	"fix": {}, "update": {}, "cve": {}, "build": {}, "changelog": {},
	"driver": {}, "security": {},
	"https": {}, "http": {}, "www": {}, "the": {}, "and": {}, "or": {},
	"for": {}, "with": {}, "from": {}, "page": {}, "read": {}, "bug": {},
	"can": {}, "will": {}, "may": {}, "user": {}, "process": {},
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// IsVendorStopword reports whether name is a reserved generic term.
func IsVendorStopword(name string) bool {
	_, ok := vendorStopwords[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// PadTokens lower-cases text, collapses every run of non-alphanumerics to a
// single space and wraps the result in boundary spaces.
func PadTokens(text string) string {
	collapsed := nonAlphanumeric.ReplaceAllString(strings.ToLower(text), " ")
	return " " + strings.TrimSpace(collapsed) + " "
}

// VendorSet is a cleaned, read-only vendor vocabulary.
// Vendors are kept longest first with a lexicographic tie-break, so every
// match is deterministic.
type VendorSet struct {
	names  []string
	padded map[string]string
}

// NewVendorSet cleans names into a VendorSet. Entries are trimmed and
// lower-cased; short names, stopwords and names without any alphanumeric
// token are dropped.
func NewVendorSet(names []string) *VendorSet {
	set := &VendorSet{padded: make(map[string]string)}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if utf8.RuneCountInString(name) < MinVendorLength {
			continue
		}
		if IsVendorStopword(name) {
			continue
		}
		if _, dup := set.padded[name]; dup {
			continue
		}
		pad := PadTokens(name)
		if strings.TrimSpace(pad) == "" {
			continue
		}
		set.padded[name] = pad
		set.names = append(set.names, name)
	}

	sort.Slice(set.names, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(set.names[i]), utf8.RuneCountInString(set.names[j])
		if li != lj {
			return li > lj
		}
		return set.names[i] < set.names[j]
	})
	return set
}

// Len returns the number of vendors in the set.
func (s *VendorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Contains reports whether vendor is in the set.
func (s *VendorSet) Contains(vendor string) bool {
	if s == nil {
		return false
	}
	_, ok := s.padded[strings.ToLower(strings.TrimSpace(vendor))]
	return ok
}

// Names returns the vendors in alphabetical order.
func (s *VendorSet) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	sort.Strings(out)
	return out
}

// Match returns the longest vendor contained in text on token boundaries.
// Equal-length candidates resolve to the lexicographically smallest.
func (s *VendorSet) Match(text string) (string, bool) {
	hits := s.MatchAll(text, 1)
	if len(hits) == 0 {
		return "", false
	}
	return hits[0], true
}

// MatchAll returns up to k vendors found in text, longest first.
func (s *VendorSet) MatchAll(text string, k int) []string {
	if s == nil || k <= 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	haystack := PadTokens(text)

	var hits []string
	for _, name := range s.names {
		if strings.Contains(haystack, s.padded[name]) {
			hits = append(hits, name)
			if len(hits) >= k {
				break
			}
		}
	}
	return hits
}
