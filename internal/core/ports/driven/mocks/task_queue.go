package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// MockTaskQueue is an in-memory TaskQueue for testing
type MockTaskQueue struct {
	mu      sync.Mutex
	pending []*domain.Task
	tasks   map[string]*domain.Task

	EnqueueFn func(task *domain.Task) error
}

// NewMockTaskQueue creates a new MockTaskQueue
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{tasks: make(map[string]*domain.Task)}
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	if m.EnqueueFn != nil {
		if err := m.EnqueueFn(task); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	m.pending = append(m.pending, task)
	return nil
}

func (m *MockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Task, error) {
	m.mu.Lock()
	if len(m.pending) > 0 {
		task := m.pending[0]
		m.pending = m.pending[1:]
		task.MarkProcessing()
		m.mu.Unlock()
		return task, nil
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-time.After(timeout):
	}
	return nil, nil
}

func (m *MockTaskQueue) Ack(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[taskID]; ok {
		task.MarkCompleted()
	}
	return nil
}

func (m *MockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	if task.CanRetry() {
		task.Retry(reason)
		m.pending = append(m.pending, task)
	} else {
		task.MarkFailed(reason)
	}
	return nil
}

func (m *MockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (m *MockTaskQueue) Ping(ctx context.Context) error { return nil }

func (m *MockTaskQueue) Close() error { return nil }

// Pending returns the vendors of queued tasks in order.
func (m *MockTaskQueue) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.pending))
	for i, t := range m.pending {
		out[i] = t.Vendor
	}
	return out
}

// Task returns a stored task by ID (nil if absent).
func (m *MockTaskQueue) Task(id string) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

// Status returns the current status of a stored task ("" if absent).
func (m *MockTaskQueue) Status(id string) domain.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[id]; ok {
		return task.Status
	}
	return ""
}
