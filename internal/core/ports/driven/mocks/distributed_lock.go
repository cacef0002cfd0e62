package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// MockDistributedLock is an in-memory DistributedLock for testing.
// Locks never expire on their own; tests release them explicitly or via
// ReleaseAfter.
type MockDistributedLock struct {
	mu    sync.Mutex
	held  map[string]string
	calls map[string]int

	// Custom behavior hooks (optional)
	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
	ExtendFn  func(name string, ttl time.Duration) error
	PingFn    func() error
}

// NewMockDistributedLock creates a new mock distributed lock.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{
		held:  make(map[string]string),
		calls: make(map[string]int),
	}
}

// Acquire takes the named lock if it is free.
func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.calls["acquire"]++
	m.mu.Unlock()

	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.held[name]; exists {
		return false, nil
	}
	m.held[name] = "mock-owner"
	return true, nil
}

// Release frees the named lock.
func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	m.calls["release"]++
	m.mu.Unlock()

	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}

// Extend succeeds only while the lock is held.
func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	m.calls["extend"]++
	m.mu.Unlock()

	if m.ExtendFn != nil {
		return m.ExtendFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.held[name]; !exists {
		return domain.ErrLockNotHeld
	}
	return nil
}

// Ping checks backend health.
func (m *MockDistributedLock) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// IsHeld checks if a lock is currently held (for test assertions).
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.held[name]
	return exists
}

// SetLockHeld marks a lock as held by another owner (for test setup).
func (m *MockDistributedLock) SetLockHeld(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = "external-owner"
}

// ReleaseAfter frees a lock held by another owner after d.
func (m *MockDistributedLock) ReleaseAfter(name string, d time.Duration) {
	time.AfterFunc(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, name)
	})
}

// AcquireCalls returns how many times Acquire was called.
func (m *MockDistributedLock) AcquireCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls["acquire"]
}

// ReleaseCalls returns how many times Release was called.
func (m *MockDistributedLock) ReleaseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls["release"]
}

// ExtendCalls returns how many times Extend was called.
func (m *MockDistributedLock) ExtendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls["extend"]
}
