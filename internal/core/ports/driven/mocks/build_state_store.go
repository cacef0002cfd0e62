package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// MockBuildStateStore is a mock implementation of BuildStateStore for testing
type MockBuildStateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.BuildState

	MarkBuiltFn func(vendor string, at time.Time) error
}

// NewMockBuildStateStore creates a new MockBuildStateStore
func NewMockBuildStateStore() *MockBuildStateStore {
	return &MockBuildStateStore{states: make(map[string]*domain.BuildState)}
}

func (m *MockBuildStateStore) Get(ctx context.Context, vendor string) (*domain.BuildState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[vendor]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockBuildStateStore) MarkBuilt(ctx context.Context, vendor string, at time.Time) error {
	if m.MarkBuiltFn != nil {
		if err := m.MarkBuiltFn(vendor, at); err != nil {
			return err
		}
	}
	m.SetRaw(vendor, domain.FormatTimestamp(at))
	return nil
}

func (m *MockBuildStateStore) List(ctx context.Context) ([]*domain.BuildState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.BuildState, 0, len(m.states))
	for _, s := range m.states {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vendor < out[j].Vendor })
	return out, nil
}

// SetRaw stores an arbitrary timestamp string (for test setup).
func (m *MockBuildStateStore) SetRaw(vendor, lastBuiltAt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[vendor] = &domain.BuildState{Vendor: vendor, LastBuiltAt: lastBuiltAt}
}
