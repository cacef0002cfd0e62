package domain

import (
	"strings"
	"time"
)

// DefaultTTL is how long a vendor build stays fresh.
const DefaultTTL = 6 * time.Hour

// Freshness is the TTL state of a vendor
type Freshness string

const (
	FreshnessFresh Freshness = "FRESH"
	FreshnessStale Freshness = "STALE"
)

// BuildState records when a vendor was last rebuilt
type BuildState struct {
	Vendor      string `json:"vendor"`
	LastBuiltAt string `json:"last_built_at"` // RFC3339 as written; parsed on read
}

// Age returns how long ago the vendor was built. ok is false when the
// timestamp is missing or cannot be parsed.
func (s *BuildState) Age(now time.Time) (age time.Duration, ok bool) {
	if s == nil || s.LastBuiltAt == "" {
		return 0, false
	}
	built, err := ParseTimestamp(s.LastBuiltAt)
	if err != nil {
		return 0, false
	}
	return now.Sub(built), true
}

// FreshnessOf evaluates state against ttl. A missing state or an unreadable
// timestamp is STALE; an age equal to ttl is still FRESH.
func FreshnessOf(state *BuildState, now time.Time, ttl time.Duration) Freshness {
	age, ok := state.Age(now)
	if !ok || age > ttl {
		return FreshnessStale
	}
	return FreshnessFresh
}

// VendorStatus pairs a build state with its freshness
type VendorStatus struct {
	Vendor      string    `json:"vendor"`
	LastBuiltAt string    `json:"last_built_at"`
	Freshness   Freshness `json:"freshness"`
}

// LakeTotals counts the rows held in each lake layer
type LakeTotals struct {
	Documents int    `json:"documents"`
	Sentences int    `json:"sentences"`
	Facts     int    `json:"facts"`
	Indexed   uint64 `json:"indexed_sentences"`
}

// BuildStats counts what one build pass wrote
type BuildStats struct {
	ItemsFetched      int `json:"items_fetched"`
	FetchErrors       int `json:"fetch_errors"`
	DocumentsUpserted int `json:"documents_upserted"`
	SentencesKept     int `json:"sentences_kept"`
	SentencesDropped  int `json:"sentences_dropped"`
	SentencesIndexed  int `json:"sentences_indexed"`
	FactsInserted     int `json:"facts_inserted"`
	VendorsResolved   int `json:"vendors_resolved"`
}

// Add accumulates other into s.
func (s *BuildStats) Add(other BuildStats) {
	s.ItemsFetched += other.ItemsFetched
	s.FetchErrors += other.FetchErrors
	s.DocumentsUpserted += other.DocumentsUpserted
	s.SentencesKept += other.SentencesKept
	s.SentencesDropped += other.SentencesDropped
	s.SentencesIndexed += other.SentencesIndexed
	s.FactsInserted += other.FactsInserted
	s.VendorsResolved += other.VendorsResolved
}

// BuildResult represents the outcome of EnsureFresh or a forced rebuild
type BuildResult struct {
	RunID     string     `json:"run_id"`
	Vendor    string     `json:"vendor"`
	Freshness Freshness  `json:"freshness"` // state observed before the build
	Rebuilt   bool       `json:"rebuilt"`
	Stats     BuildStats `json:"stats"`
	Warning   string     `json:"warning,omitempty"` // stale-but-served reason
	Duration  float64    `json:"duration_seconds"`
}

// FormatTimestamp renders t the way timestamps are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339 and the common ISO8601 variants found in
// feeds. Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
