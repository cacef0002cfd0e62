package domain

import (
	"fmt"
	"strings"
)

// Intent is the kind of question being answered
type Intent string

const (
	IntentVersion Intent = "VERSION"
	IntentCVE     Intent = "CVE"
	IntentPatch   Intent = "PATCH"
	IntentGeneric Intent = "GENERIC"
)

// ParseIntent validates an intent name. Matching is case-insensitive.
func ParseIntent(s string) (Intent, error) {
	switch Intent(strings.ToUpper(strings.TrimSpace(s))) {
	case IntentVersion:
		return IntentVersion, nil
	case IntentCVE:
		return IntentCVE, nil
	case IntentPatch:
		return IntentPatch, nil
	case IntentGeneric:
		return IntentGeneric, nil
	}
	return "", fmt.Errorf("%w: unknown intent %q", ErrInvalidInput, s)
}

// InferIntent guesses the intent of a free-text question.
// A CVE reference wins, then any patch keyword; everything else is a
// version question.
func InferIntent(query string) Intent {
	q := strings.ToLower(query)
	if strings.Contains(q, "cve-") {
		return IntentCVE
	}
	if containsAny(q, PatchKeywords) {
		return IntentPatch
	}
	return IntentVersion
}

// Answer confidences
const (
	ConfidenceNoVendor        = 0.30
	ConfidenceVersionFound    = 0.85
	ConfidenceVersionUnknown  = 0.45
	ConfidenceEvidenceFound   = 0.70
	ConfidenceEvidenceUnknown = 0.49
	ConfidenceGenericFound    = 0.50
	ConfidenceGenericUnknown  = 0.45
)

// EvidenceSnippetLength bounds sentence text returned as evidence.
const EvidenceSnippetLength = 240

// DefaultAnswerLimit bounds evidence lists.
const DefaultAnswerLimit = 12

// Evidence is one supporting record behind an answer
type Evidence struct {
	Source  Source `json:"source"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Answer is the structured result handed to presentation layers
type Answer struct {
	Abstained       bool       `json:"abstained"`
	Confidence      float64    `json:"confidence"`
	Intent          Intent     `json:"intent"`
	ResolvedVendors []string   `json:"resolved_vendors"`
	ShortAnswer     string     `json:"short_answer"`
	Meta            string     `json:"meta"`
	Evidence        []Evidence `json:"evidence"`
}

// SentenceFilter selects Silver sentences for the read path
type SentenceFilter struct {
	Vendor string
	Intent Intent // CVE and PATCH narrow by flag; anything else does not
	Limit  int
}

// SearchHit is a full-text match over kept sentences
type SearchHit struct {
	SentID      string   `json:"sent_id"`
	DocID       string   `json:"doc_id"`
	Source      Source   `json:"source"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	Text        string   `json:"text"`
	Vendors     []string `json:"vendors"`
	Score       float64  `json:"score"`
}
