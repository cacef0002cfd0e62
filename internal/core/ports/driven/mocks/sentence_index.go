package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// MockSentenceIndex is a substring-matching SentenceIndex for testing
type MockSentenceIndex struct {
	mu        sync.RWMutex
	sentences map[string]*domain.Sentence

	IndexFn func(sentences []*domain.Sentence) error
}

// NewMockSentenceIndex creates a new MockSentenceIndex
func NewMockSentenceIndex() *MockSentenceIndex {
	return &MockSentenceIndex{sentences: make(map[string]*domain.Sentence)}
}

func (m *MockSentenceIndex) Index(ctx context.Context, sentences []*domain.Sentence) error {
	if m.IndexFn != nil {
		if err := m.IndexFn(sentences); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sentences {
		m.sentences[s.ID] = s
	}
	return nil
}

func (m *MockSentenceIndex) Search(ctx context.Context, vendor, query string, limit int) ([]domain.SearchHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []domain.SearchHit
	q := strings.ToLower(query)
	for _, s := range m.sentences {
		if vendor != "" && !containsString(s.Vendors, vendor) {
			continue
		}
		if !strings.Contains(s.TextLC, q) {
			continue
		}
		hits = append(hits, domain.SearchHit{
			SentID: s.ID, DocID: s.DocID, Source: s.Source, URL: s.URL,
			PublishedAt: s.PublishedAt, Text: s.Text, Vendors: s.Vendors, Score: 1,
		})
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

func (m *MockSentenceIndex) Count(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.sentences)), nil
}

func (m *MockSentenceIndex) Close() error { return nil }
