package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// MockFeedClient is a mock implementation of FeedClient for testing
type MockFeedClient struct {
	mu    sync.Mutex
	items map[domain.Source][]domain.RawItem
	calls []FeedCall

	FetchFn func(source domain.Source, vendor string) ([]domain.RawItem, error)
}

// FeedCall records one Fetch invocation
type FeedCall struct {
	Source domain.Source
	Vendor string
}

// NewMockFeedClient creates a new MockFeedClient
func NewMockFeedClient() *MockFeedClient {
	return &MockFeedClient{items: make(map[domain.Source][]domain.RawItem)}
}

// SetItems sets the items returned for a source.
func (m *MockFeedClient) SetItems(source domain.Source, items ...domain.RawItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[source] = items
}

func (m *MockFeedClient) Fetch(ctx context.Context, source domain.Source, vendor string) ([]domain.RawItem, error) {
	m.mu.Lock()
	m.calls = append(m.calls, FeedCall{Source: source, Vendor: vendor})
	items := m.items[source]
	m.mu.Unlock()

	if m.FetchFn != nil {
		return m.FetchFn(source, vendor)
	}
	return items, nil
}

// Calls returns every recorded Fetch call.
func (m *MockFeedClient) Calls() []FeedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FeedCall, len(m.calls))
	copy(out, m.calls)
	return out
}
