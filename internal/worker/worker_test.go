package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven/mocks"
)

// fakeLake records which builds ran
type fakeLake struct {
	mu       sync.Mutex
	rebuilds []string
	ensures  []string

	rebuildErr error
	warning    string
}

func (f *fakeLake) EnsureFresh(ctx context.Context, vendor string) (*domain.BuildResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures = append(f.ensures, vendor)
	return &domain.BuildResult{Vendor: vendor, Warning: f.warning}, nil
}

func (f *fakeLake) Rebuild(ctx context.Context, vendor string) (*domain.BuildResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuilds = append(f.rebuilds, vendor)
	if f.rebuildErr != nil {
		return nil, f.rebuildErr
	}
	return &domain.BuildResult{Vendor: vendor, Rebuilt: true, Warning: f.warning}, nil
}

func (f *fakeLake) Ingest(ctx context.Context, source domain.Source, items []domain.RawItem) (*domain.BuildStats, error) {
	return &domain.BuildStats{}, nil
}

func (f *fakeLake) Status(ctx context.Context) ([]domain.VendorStatus, error) {
	return nil, nil
}

func (f *fakeLake) Totals(ctx context.Context) (*domain.LakeTotals, error) {
	return &domain.LakeTotals{}, nil
}

func (f *fakeLake) calls() (rebuilds, ensures int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rebuilds), len(f.ensures)
}

type fakeRefresher struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (r *fakeRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *fakeRefresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

func (r *fakeRefresher) RefreshOnce(ctx context.Context) (int, error) { return 0, nil }

type unhealthyQueue struct {
	*mocks.MockTaskQueue
}

func (q *unhealthyQueue) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWorker(t *testing.T, queue *mocks.MockTaskQueue, lake *fakeLake) *Worker {
	t.Helper()
	w := NewWorker(WorkerConfig{
		TaskQueue:      queue,
		Lake:           lake,
		Logger:         quietLogger(),
		DequeueTimeout: 10 * time.Millisecond,
	})
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(WorkerConfig{})

	assert.Equal(t, 1, w.concurrency)
	assert.Equal(t, 5*time.Second, w.dequeueTimeout)
	assert.NotNil(t, w.logger)
}

func TestWorker_StartRequiresDependencies(t *testing.T) {
	w := NewWorker(WorkerConfig{Logger: quietLogger()})

	err := w.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, w.Health(context.Background()).Running)
}

func TestWorker_ProcessesRebuildTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	lake := &fakeLake{}
	task := domain.NewTask(domain.TaskTypeRebuildVendor, "fedora")
	require.NoError(t, queue.Enqueue(context.Background(), task))

	w := startWorker(t, queue, lake)

	require.Eventually(t, func() bool {
		rebuilds, _ := lake.calls()
		return rebuilds == 1
	}, 2*time.Second, 5*time.Millisecond)
	w.Stop()

	assert.Equal(t, []string{"fedora"}, lake.rebuilds)
	assert.Equal(t, domain.TaskStatusCompleted, queue.Task(task.ID).Status)
}

func TestWorker_ProcessesRefreshTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	lake := &fakeLake{}
	task := domain.NewTask(domain.TaskTypeRefreshVendor, "ubuntu")
	require.NoError(t, queue.Enqueue(context.Background(), task))

	w := startWorker(t, queue, lake)

	require.Eventually(t, func() bool {
		_, ensures := lake.calls()
		return ensures == 1
	}, 2*time.Second, 5*time.Millisecond)
	w.Stop()

	rebuilds, _ := lake.calls()
	assert.Zero(t, rebuilds, "refresh tasks never force a rebuild")
	assert.Equal(t, domain.TaskStatusCompleted, queue.Task(task.ID).Status)
}

func TestWorker_FailedBuildIsRetriedThenFailed(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	lake := &fakeLake{rebuildErr: errors.New("disk full")}
	task := domain.NewTask(domain.TaskTypeRebuildVendor, "fedora")
	require.NoError(t, queue.Enqueue(context.Background(), task))

	w := startWorker(t, queue, lake)

	require.Eventually(t, func() bool {
		rebuilds, _ := lake.calls()
		return rebuilds == task.MaxAttempts
	}, 2*time.Second, 5*time.Millisecond)
	w.Stop()

	got := queue.Task(task.ID)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, "disk full", got.Error)
	assert.Empty(t, queue.Pending())
}

func TestWorker_LockWarningNacksTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	lake := &fakeLake{warning: domain.ErrLockTimeout.Error()}
	task := domain.NewTask(domain.TaskTypeRebuildVendor, "fedora")
	task.MaxAttempts = 1
	require.NoError(t, queue.Enqueue(context.Background(), task))

	w := startWorker(t, queue, lake)

	require.Eventually(t, func() bool {
		rebuilds, _ := lake.calls()
		return rebuilds == 1
	}, 2*time.Second, 5*time.Millisecond)
	w.Stop()

	got := queue.Task(task.ID)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Contains(t, got.Error, "build not run")
}

func TestWorker_RejectsInvalidTasks(t *testing.T) {
	tests := []struct {
		name string
		task *domain.Task
	}{
		{"unknown type", &domain.Task{ID: "t-unknown", Type: "sync_all", Vendor: "fedora", MaxAttempts: 1}},
		{"missing vendor", &domain.Task{ID: "t-novendor", Type: domain.TaskTypeRebuildVendor, MaxAttempts: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := mocks.NewMockTaskQueue()
			lake := &fakeLake{}
			require.NoError(t, queue.Enqueue(context.Background(), tt.task))

			w := startWorker(t, queue, lake)
			require.Eventually(t, func() bool {
				return queue.Status(tt.task.ID) == domain.TaskStatusFailed
			}, 2*time.Second, 5*time.Millisecond)
			w.Stop()

			rebuilds, ensures := lake.calls()
			assert.Zero(t, rebuilds+ensures)
		})
	}
}

func TestWorker_StartsAndStopsRefresher(t *testing.T) {
	refresher := &fakeRefresher{}
	w := NewWorker(WorkerConfig{
		TaskQueue:      mocks.NewMockTaskQueue(),
		Lake:           &fakeLake{},
		Refresher:      refresher,
		Logger:         quietLogger(),
		DequeueTimeout: 10 * time.Millisecond,
	})

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()), "second start is a no-op")
	w.Stop()
	w.Stop()

	assert.True(t, refresher.started)
	assert.True(t, refresher.stopped)
}

func TestWorker_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(WorkerConfig{
		TaskQueue:      mocks.NewMockTaskQueue(),
		Lake:           &fakeLake{},
		Logger:         quietLogger(),
		Concurrency:    3,
		DequeueTimeout: 10 * time.Millisecond,
	})
	require.NoError(t, w.Start(ctx))

	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after context cancellation")
	}
}

func TestWorker_Health(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	w := startWorker(t, queue, &fakeLake{})

	health := w.Health(context.Background())
	assert.True(t, health.Running)
	assert.True(t, health.QueueHealth)
	assert.Empty(t, health.Error)
}

func TestWorker_Health_QueueError(t *testing.T) {
	w := NewWorker(WorkerConfig{
		TaskQueue: &unhealthyQueue{MockTaskQueue: mocks.NewMockTaskQueue()},
		Lake:      &fakeLake{},
		Logger:    quietLogger(),
	})

	health := w.Health(context.Background())
	assert.False(t, health.Running)
	assert.False(t, health.QueueHealth)
	assert.Equal(t, "connection refused", health.Error)
}
