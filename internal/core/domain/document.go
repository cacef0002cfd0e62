package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Source identifies the upstream feed a document came from
type Source string

const (
	// SourceOS is the release-train component feed (OS and product releases)
	SourceOS Source = "os"
	// SourceReddit is the community discussion feed
	SourceReddit Source = "reddit"
)

// Sources lists every known source in fetch order.
func Sources() []Source {
	return []Source{SourceOS, SourceReddit}
}

// ParseSource validates a source name.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceOS:
		return SourceOS, nil
	case SourceReddit:
		return SourceReddit, nil
	}
	return "", fmt.Errorf("%w: unknown source %q", ErrInvalidInput, s)
}

// RawItem is a single upstream record before normalisation.
// Key names differ between feeds.
type RawItem map[string]any

// Document is the canonical Silver record for one upstream item
type Document struct {
	ID          string `json:"doc_id"`
	Source      Source `json:"source"`
	Title       string `json:"title"`
	BodyText    string `json:"body_text"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"` // RFC3339 UTC or empty
	RawJSON     string `json:"raw_json"`
}

// FullText is the text the segmenter splits: title and body joined as one
// leading sentence followed by the body.
func (d *Document) FullText() string {
	return strings.TrimSpace(d.Title + ". " + d.BodyText)
}

// HashID returns the hex sha256 of parts joined by "|".
func HashID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the stable id of a document from its source and its
// url, falling back to its title when there is no url.
func DocumentID(source Source, url, title string) string {
	key := url
	if key == "" {
		key = title
	}
	return HashID(string(source), key)
}

// SentenceID derives the stable id of a sentence from its document, its
// 1-based position and the first 80 characters of its text.
func SentenceID(docID string, position int, text string) string {
	return HashID(docID, fmt.Sprintf("%d", position), TruncateRunes(text, 80))
}

// FactID derives the stable id of a version fact.
func FactID(vendor, sentID, value string) string {
	return HashID(vendor, sentID, value)
}

// TruncateRunes returns at most n characters of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
