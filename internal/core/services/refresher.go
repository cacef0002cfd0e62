package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.Refresher = (*Refresher)(nil)

// refresherLockName guards the refresh cycle across instances.
const refresherLockName = "refresher"

// Refresher periodically rebuilds stale vendors.
// With a TaskQueue configured it enqueues refresh tasks for workers instead
// of building inline.
//
// For multi-instance deployments, configure a DistributedLock so only one
// instance runs each cycle.
type Refresher struct {
	lake      driving.LakeService
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
	lockTTL  time.Duration
}

// RefresherConfig holds configuration for the refresher.
type RefresherConfig struct {
	Lake      driving.LakeService
	TaskQueue driven.TaskQueue       // Optional: enqueue instead of building inline
	Lock      driven.DistributedLock // Optional: single refresher across instances
	Logger    *slog.Logger
	Interval  time.Duration // How often to check vendors (default: 30m)
	LockTTL   time.Duration // TTL for the refresher lock (default: 2x interval)
}

// NewRefresher creates a new refresher.
func NewRefresher(cfg RefresherConfig) *Refresher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 30 * time.Minute
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}

	return &Refresher{
		lake:      cfg.Lake,
		taskQueue: cfg.TaskQueue,
		lock:      cfg.Lock,
		logger:    logger,
		interval:  interval,
		lockTTL:   lockTTL,
	}
}

// Start begins the refresh loop.
// It runs until Stop is called or context is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	r.stopCh = stop
	r.doneCh = done
	r.mu.Unlock()

	r.logger.Info("refresher starting", "interval", r.interval)

	go r.run(ctx, stop, done)

	return nil
}

// Running reports whether the refresh loop is active.
func (r *Refresher) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Stop gracefully stops the refresher.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	done := r.doneCh
	close(r.stopCh)
	r.mu.Unlock()

	<-done

	r.logger.Info("refresher stopped")
}

func (r *Refresher) run(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer r.exited(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher context cancelled")
			return
		case <-stop:
			return
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

// exited clears running when the loop that owns done ends on its own, so a
// cancelled refresher can be started again.
func (r *Refresher) exited(done chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doneCh == done {
		r.running = false
	}
}

func (r *Refresher) cycle(ctx context.Context) {
	if _, err := r.RefreshOnce(ctx); err != nil {
		r.logger.Error("refresh cycle failed", "error", err)
	}
}

// RefreshOnce checks every built vendor once and rebuilds or enqueues the
// stale ones. A cycle held by another instance is skipped.
func (r *Refresher) RefreshOnce(ctx context.Context) (int, error) {
	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, refresherLockName, r.lockTTL)
		if err != nil {
			return 0, fmt.Errorf("failed to acquire refresher lock: %w", err)
		}
		if !acquired {
			r.logger.Debug("refresher lock held by another instance, skipping cycle")
			return 0, nil
		}
		defer func() {
			if err := r.lock.Release(context.WithoutCancel(ctx), refresherLockName); err != nil {
				r.logger.Warn("failed to release refresher lock", "error", err)
			}
		}()
	}

	statuses, err := r.lake.Status(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, status := range statuses {
		if status.Freshness != domain.FreshnessStale {
			continue
		}
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}

		if r.taskQueue != nil {
			task := domain.NewTask(domain.TaskTypeRefreshVendor, status.Vendor)
			if err := r.taskQueue.Enqueue(ctx, task); err != nil {
				r.logger.Error("failed to enqueue refresh task", "vendor", status.Vendor, "error", err)
				continue
			}
			r.logger.Info("enqueued refresh task", "vendor", status.Vendor, "task_id", task.ID)
			refreshed++
			continue
		}

		result, err := r.lake.EnsureFresh(ctx, status.Vendor)
		if err != nil {
			if errors.Is(err, domain.ErrVendorUnknown) {
				r.logger.Debug("skipping vendor no longer in vocabulary", "vendor", status.Vendor)
				continue
			}
			r.logger.Error("failed to refresh vendor", "vendor", status.Vendor, "error", err)
			continue
		}
		if result.Rebuilt {
			refreshed++
		}
	}

	return refreshed, nil
}
