package bleve

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SentenceIndex = (*SentenceIndex)(nil)

// DefaultSearchLimit is used when a search passes no limit
const DefaultSearchLimit = 20

// Index field names
const (
	fieldText        = "text"
	fieldVendors     = "vendors"
	fieldSource      = "source"
	fieldDocID       = "doc_id"
	fieldURL         = "url"
	fieldPublishedAt = "published_at"
)

// SentenceIndex implements driven.SentenceIndex on a bleve index.
// Sentence text is analysed; vendors and source are exact keywords.
type SentenceIndex struct {
	index bleve.Index
}

// Open opens the index at path, creating it on first use.
// An empty path keeps the index in memory.
func Open(path string) (*SentenceIndex, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		return &SentenceIndex{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &SentenceIndex{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(fieldText, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldVendors, bleve.NewKeywordFieldMapping())
	docMapping.AddFieldMappingsAt(fieldSource, bleve.NewKeywordFieldMapping())
	docMapping.AddFieldMappingsAt(fieldDocID, storedOnly)
	docMapping.AddFieldMappingsAt(fieldURL, storedOnly)
	docMapping.AddFieldMappingsAt(fieldPublishedAt, storedOnly)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Index adds or replaces sentences in one batch
func (i *SentenceIndex) Index(ctx context.Context, sentences []*domain.Sentence) error {
	if len(sentences) == 0 {
		return nil
	}

	batch := i.index.NewBatch()
	for _, s := range sentences {
		if s == nil {
			continue
		}
		doc := map[string]any{
			fieldText:        s.Text,
			fieldVendors:     s.Vendors,
			fieldSource:      string(s.Source),
			fieldDocID:       s.DocID,
			fieldURL:         s.URL,
			fieldPublishedAt: s.PublishedAt,
		}
		if err := batch.Index(s.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", s.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search matches text against the query, optionally restricted to a vendor
func (i *SentenceIndex) Search(ctx context.Context, vendor, queryStr string, limit int) ([]domain.SearchHit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	match := bleve.NewMatchQuery(queryStr)
	match.SetField(fieldText)

	var q query.Query = match
	if vendor != "" {
		term := bleve.NewTermQuery(vendor)
		term.SetField(fieldVendors)
		q = bleve.NewConjunctionQuery(match, term)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"*"}

	results, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(results.Hits))
	for _, h := range results.Hits {
		hits = append(hits, domain.SearchHit{
			SentID:      h.ID,
			DocID:       stringField(h.Fields, fieldDocID),
			Source:      domain.Source(stringField(h.Fields, fieldSource)),
			URL:         stringField(h.Fields, fieldURL),
			PublishedAt: stringField(h.Fields, fieldPublishedAt),
			Text:        stringField(h.Fields, fieldText),
			Vendors:     listField(h.Fields, fieldVendors),
			Score:       h.Score,
		})
	}
	return hits, nil
}

// Count returns the number of indexed sentences
func (i *SentenceIndex) Count(ctx context.Context) (uint64, error) {
	return i.index.DocCount()
}

// Close closes the index
func (i *SentenceIndex) Close() error {
	return i.index.Close()
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

// listField reads a stored array field. Bleve returns a single value
// unwrapped and several values as []any.
func listField(fields map[string]any, name string) []string {
	switch v := fields[name].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
