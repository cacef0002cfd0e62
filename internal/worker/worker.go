package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driving"
)

// Worker drains the rebuild queue. One loop dequeues tasks and hands them to
// an ants pool, so at most concurrency builds run at once. The build lock
// still serialises builds that share a lake.
type Worker struct {
	taskQueue driven.TaskQueue
	lake      driving.LakeService
	refresher driving.Refresher
	logger    *slog.Logger

	concurrency    int
	dequeueTimeout time.Duration
	errorBackoff   time.Duration

	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	inflight sync.WaitGroup
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Lake           driving.LakeService
	Refresher      driving.Refresher // Optional: started and stopped with the worker
	Logger         *slog.Logger
	Concurrency    int           // Builds in flight (default: 1)
	DequeueTimeout time.Duration // Blocking dequeue window (default: 5s)
}

func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		lake:           cfg.Lake,
		refresher:      cfg.Refresher,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		errorBackoff:   time.Second,
	}
}

type job struct {
	ctx  context.Context
	task *domain.Task
}

// Start launches the dispatch loop and the refresher, if any. It returns
// immediately; the loop runs until Stop or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if w.taskQueue == nil || w.lake == nil {
		return fmt.Errorf("%w: worker needs a task queue and a lake service", domain.ErrInvalidInput)
	}

	pool, err := ants.NewPoolWithFunc(w.concurrency, func(arg any) {
		j := arg.(job)
		defer w.inflight.Done()
		w.processTask(j.ctx, j.task)
	})
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}

	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	if w.refresher != nil {
		if err := w.refresher.Start(ctx); err != nil {
			w.logger.Error("failed to start refresher", "error", err)
		}
	}

	go w.dispatch(ctx, pool, w.stopCh, w.doneCh)
	return nil
}

// Stop ends the dispatch loop and waits for in-flight builds.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	if w.refresher != nil {
		w.refresher.Stop()
	}
	<-done

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the dispatch loop has exited.
func (w *Worker) Wait() {
	w.mu.RLock()
	done := w.doneCh
	w.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (w *Worker) dispatch(ctx context.Context, pool *ants.PoolWithFunc, stop <-chan struct{}, done chan<- struct{}) {
	defer func() {
		w.inflight.Wait()
		pool.Release()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("failed to dequeue task", "error", err)
			select {
			case <-ctx.Done():
			case <-stop:
			case <-time.After(w.errorBackoff):
			}
			continue
		}
		if task == nil {
			continue
		}

		// Invoke blocks while every pool slot is busy.
		w.inflight.Add(1)
		if err := pool.Invoke(job{ctx: ctx, task: task}); err != nil {
			w.inflight.Done()
			w.logger.Error("failed to dispatch task", "task_id", task.ID, "error", err)
			if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
				w.logger.Error("failed to nack task", "task_id", task.ID, "nack_error", nackErr)
			}
		}
	}
}

func (w *Worker) processTask(ctx context.Context, task *domain.Task) {
	logger := w.logger.With("task_id", task.ID, "task_type", task.Type, "vendor", task.Vendor, "attempt", task.Attempts)
	logger.Info("processing task")

	start := time.Now()
	var err error
	switch task.Type {
	case domain.TaskTypeRebuildVendor:
		err = w.handleBuild(ctx, task, w.lake.Rebuild)
	case domain.TaskTypeRefreshVendor:
		err = w.handleBuild(ctx, task, w.lake.EnsureFresh)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}
	duration := time.Since(start)

	if err != nil {
		logger.Error("task failed", "duration", duration, "error", err)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

type buildFunc func(ctx context.Context, vendor string) (*domain.BuildResult, error)

// handleBuild runs one vendor build. A lock timeout is returned as an
// error so the queue retries the task later.
func (w *Worker) handleBuild(ctx context.Context, task *domain.Task, build buildFunc) error {
	if task.Vendor == "" {
		return fmt.Errorf("%w: task has no vendor", domain.ErrInvalidInput)
	}

	result, err := build(ctx, task.Vendor)
	if err != nil {
		return err
	}
	if result != nil && result.Warning != "" {
		return fmt.Errorf("build not run: %s", result.Warning)
	}
	return nil
}

// Health reports whether the worker is running and its queue is reachable.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{Running: running}
	if w.taskQueue == nil {
		health.Error = "no task queue configured"
		return health
	}
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}
	return health
}
