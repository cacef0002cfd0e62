package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document

	UpsertFn func(doc *domain.Document) error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{docs: make(map[string]*domain.Document)}
}

func (m *MockDocumentStore) Upsert(ctx context.Context, doc *domain.Document) error {
	if m.UpsertFn != nil {
		if err := m.UpsertFn(doc); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

// Get returns a stored document (for test assertions).
func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

// MockSentenceStore is a mock implementation of SentenceStore for testing
type MockSentenceStore struct {
	mu        sync.RWMutex
	sentences map[string]*domain.Sentence
}

// NewMockSentenceStore creates a new MockSentenceStore
func NewMockSentenceStore() *MockSentenceStore {
	return &MockSentenceStore{sentences: make(map[string]*domain.Sentence)}
}

func (m *MockSentenceStore) Upsert(ctx context.Context, s *domain.Sentence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sentences[s.ID] = &cp
	return nil
}

// Get returns a stored sentence (for test assertions).
func (m *MockSentenceStore) Get(ctx context.Context, id string) (*domain.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sentences[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *MockSentenceStore) ListVersionBearing(ctx context.Context) ([]*domain.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Sentence
	for _, s := range m.sentences {
		if s.HasVersion && len(s.Versions) > 0 {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockSentenceStore) ListForVendor(ctx context.Context, filter domain.SentenceFilter) ([]*domain.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Sentence
	for _, s := range m.sentences {
		if !containsString(s.Vendors, filter.Vendor) {
			continue
		}
		if filter.Intent == domain.IntentCVE && !s.HasCVE {
			continue
		}
		if filter.Intent == domain.IntentPatch && !s.HasPatch {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishedAt != out[j].PublishedAt {
			return out[i].PublishedAt > out[j].PublishedAt
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MockSentenceStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sentences), nil
}

// MockFactStore is a mock implementation of FactStore for testing
type MockFactStore struct {
	mu    sync.RWMutex
	facts map[string]*domain.Fact
	order []string
}

// NewMockFactStore creates a new MockFactStore
func NewMockFactStore() *MockFactStore {
	return &MockFactStore{facts: make(map[string]*domain.Fact)}
}

func (m *MockFactStore) InsertIgnore(ctx context.Context, f *domain.Fact) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.facts[f.ID]; exists {
		return false, nil
	}
	cp := *f
	m.facts[f.ID] = &cp
	m.order = append(m.order, f.ID)
	return true, nil
}

func (m *MockFactStore) ListCandidates(ctx context.Context) ([]*domain.Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Fact
	for _, id := range m.order {
		if f := m.facts[id]; f.Type == domain.FactTypeLatestVersionCandidate {
			out = append(out, f)
		}
	}
	return out, nil
}

// ListByVendor returns a vendor's facts (for test assertions).
func (m *MockFactStore) ListByVendor(ctx context.Context, vendor string) ([]*domain.Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Fact
	for _, id := range m.order {
		if f := m.facts[id]; f.Vendor == vendor {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MockFactStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.facts), nil
}

// MockLatestVersionStore is a mock implementation of LatestVersionStore for testing
type MockLatestVersionStore struct {
	mu       sync.RWMutex
	rows     map[string]*domain.LatestVersion
	replaces int
}

// NewMockLatestVersionStore creates a new MockLatestVersionStore
func NewMockLatestVersionStore() *MockLatestVersionStore {
	return &MockLatestVersionStore{rows: make(map[string]*domain.LatestVersion)}
}

func (m *MockLatestVersionStore) ReplaceAll(ctx context.Context, rows []*domain.LatestVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[string]*domain.LatestVersion, len(rows))
	for _, r := range rows {
		cp := *r
		m.rows[r.Vendor] = &cp
	}
	m.replaces++
	return nil
}

func (m *MockLatestVersionStore) Get(ctx context.Context, vendor string) (*domain.LatestVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rows[vendor]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *MockLatestVersionStore) List(ctx context.Context) ([]*domain.LatestVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LatestVersion, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vendor < out[j].Vendor })
	return out, nil
}

// Replaces returns how many times the view was rebuilt.
func (m *MockLatestVersionStore) Replaces() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.replaces
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
