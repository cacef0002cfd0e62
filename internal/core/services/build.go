package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.LakeService = (*BuildOrchestrator)(nil)

// Build lock defaults
const (
	DefaultLockWait = 5 * time.Minute
	DefaultLockTTL  = 10 * time.Minute

	lockPollMin = 50 * time.Millisecond
	lockPollMax = time.Second

	// The lease is renewed this many times per LockTTL while a build runs.
	lockRenewals = 3
)

// BuildOrchestrator coordinates TTL-gated vendor builds.
// A stale vendor is rebuilt in this order:
//  1. Acquire the build lock (named after the shared store)
//  2. Re-check freshness under the lock
//  3. Fetch vendor-scoped items from every source concurrently
//  4. Build Silver per source
//  5. Extract Gold facts
//  6. Resolve the latest-version view
//  7. Record last_built_at
type BuildOrchestrator struct {
	feed      driven.FeedClient
	states    driven.BuildStateStore
	lock      driven.DistributedLock
	silver    *SilverBuilder
	extractor *FactExtractor
	resolver  *LatestResolver
	vocab     driven.VendorVocabulary
	logger    *slog.Logger

	lockName         string
	ttl              time.Duration
	lockWait         time.Duration
	lockTTL          time.Duration
	fetchConcurrency int
	now              func() time.Time
}

// BuildOrchestratorConfig holds dependencies for BuildOrchestrator.
type BuildOrchestratorConfig struct {
	Feed       driven.FeedClient
	States     driven.BuildStateStore
	Lock       driven.DistributedLock
	Silver     *SilverBuilder
	Extractor  *FactExtractor
	Resolver   *LatestResolver
	Vocabulary driven.VendorVocabulary
	Logger     *slog.Logger

	LockName         string        // Usually the database path
	TTL              time.Duration // Freshness window (default: 6h)
	LockWait         time.Duration // How long a build waits for the lock (default: 5m)
	LockTTL          time.Duration // Lease for expiring lock backends (default: 10m)
	FetchConcurrency int           // Parallel source fetches (default: one per source)
	Now              func() time.Time
}

// NewBuildOrchestrator creates a new build orchestrator.
func NewBuildOrchestrator(cfg BuildOrchestratorConfig) *BuildOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = domain.DefaultTTL
	}

	lockWait := cfg.LockWait
	if lockWait == 0 {
		lockWait = DefaultLockWait
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = DefaultLockTTL
	}

	lockName := cfg.LockName
	if lockName == "" {
		lockName = "lake"
	}

	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = len(domain.Sources())
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &BuildOrchestrator{
		feed:             cfg.Feed,
		states:           cfg.States,
		lock:             cfg.Lock,
		silver:           cfg.Silver,
		extractor:        cfg.Extractor,
		resolver:         cfg.Resolver,
		vocab:            cfg.Vocabulary,
		logger:           logger,
		lockName:         lockName,
		ttl:              ttl,
		lockWait:         lockWait,
		lockTTL:          lockTTL,
		fetchConcurrency: concurrency,
		now:              now,
	}
}

// EnsureFresh rebuilds vendor when it is stale.
func (o *BuildOrchestrator) EnsureFresh(ctx context.Context, vendor string) (*domain.BuildResult, error) {
	vendor, err := o.checkVendor(vendor)
	if err != nil {
		return nil, err
	}

	freshness, err := o.freshness(ctx, vendor)
	if err != nil {
		return nil, err
	}
	if freshness == domain.FreshnessFresh {
		return &domain.BuildResult{Vendor: vendor, Freshness: freshness}, nil
	}

	return o.build(ctx, vendor, freshness, false)
}

// Rebuild rebuilds vendor regardless of its TTL state.
func (o *BuildOrchestrator) Rebuild(ctx context.Context, vendor string) (*domain.BuildResult, error) {
	vendor, err := o.checkVendor(vendor)
	if err != nil {
		return nil, err
	}

	freshness, err := o.freshness(ctx, vendor)
	if err != nil {
		return nil, err
	}

	return o.build(ctx, vendor, freshness, true)
}

// Ingest loads items for one source and rebuilds Silver and Gold from them.
// Build state is left untouched so TTL-driven fetches still happen.
func (o *BuildOrchestrator) Ingest(ctx context.Context, source domain.Source, items []domain.RawItem) (*domain.BuildStats, error) {
	acquired, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, domain.ErrLockTimeout
	}
	defer o.release(ctx)
	stop := o.keepLock(ctx, o.logger)
	defer stop()

	stats, err := o.silver.Build(ctx, source, items)
	if err != nil {
		return nil, err
	}
	if err := o.refreshGold(ctx, &stats); err != nil {
		return nil, err
	}

	o.logger.Info("ingest completed",
		"source", source,
		"items", stats.ItemsFetched,
		"sentences_kept", stats.SentencesKept,
		"facts_inserted", stats.FactsInserted,
	)
	return &stats, nil
}

// Status lists every built vendor with its freshness.
func (o *BuildOrchestrator) Status(ctx context.Context) ([]domain.VendorStatus, error) {
	states, err := o.states.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list build states: %w", err)
	}

	now := o.now()
	out := make([]domain.VendorStatus, 0, len(states))
	for _, s := range states {
		out = append(out, domain.VendorStatus{
			Vendor:      s.Vendor,
			LastBuiltAt: s.LastBuiltAt,
			Freshness:   domain.FreshnessOf(s, now, o.ttl),
		})
	}
	return out, nil
}

// Totals counts the rows in every store the orchestrator builds.
func (o *BuildOrchestrator) Totals(ctx context.Context) (*domain.LakeTotals, error) {
	totals := &domain.LakeTotals{}

	var err error
	if totals.Documents, err = o.silver.documents.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if totals.Sentences, err = o.silver.sentences.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count sentences: %w", err)
	}
	if totals.Facts, err = o.extractor.facts.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count facts: %w", err)
	}
	if o.silver.index != nil {
		if totals.Indexed, err = o.silver.index.Count(ctx); err != nil {
			return nil, fmt.Errorf("failed to count indexed sentences: %w", err)
		}
	}
	return totals, nil
}

func (o *BuildOrchestrator) checkVendor(vendor string) (string, error) {
	vendor = strings.ToLower(strings.TrimSpace(vendor))
	if vendor == "" {
		return "", fmt.Errorf("%w: vendor is required", domain.ErrInvalidInput)
	}
	if o.vocab != nil {
		if set := o.vocab.Vendors(); set.Len() > 0 && !set.Contains(vendor) {
			return "", fmt.Errorf("%w: %s", domain.ErrVendorUnknown, vendor)
		}
	}
	return vendor, nil
}

func (o *BuildOrchestrator) freshness(ctx context.Context, vendor string) (domain.Freshness, error) {
	state, err := o.states.Get(ctx, vendor)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.FreshnessStale, nil
		}
		return "", fmt.Errorf("failed to get build state: %w", err)
	}
	return domain.FreshnessOf(state, o.now(), o.ttl), nil
}

// build runs the locked rebuild. Without force, a vendor that became fresh
// while waiting for the lock is not rebuilt again.
func (o *BuildOrchestrator) build(ctx context.Context, vendor string, observed domain.Freshness, force bool) (*domain.BuildResult, error) {
	start := o.now()
	result := &domain.BuildResult{
		RunID:     domain.GenerateID(),
		Vendor:    vendor,
		Freshness: observed,
	}
	logger := o.logger.With("vendor", vendor, "run_id", result.RunID)

	acquired, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		logger.Warn("build lock busy, serving existing data", "lock", o.lockName, "waited", o.lockWait)
		result.Warning = domain.ErrLockTimeout.Error()
		return result, nil
	}
	defer o.release(ctx)
	stop := o.keepLock(ctx, logger)
	defer stop()

	if !force {
		current, err := o.freshness(ctx, vendor)
		if err != nil {
			return nil, err
		}
		if current == domain.FreshnessFresh {
			logger.Debug("vendor rebuilt by another holder")
			return result, nil
		}
	}

	logger.Info("starting build", "freshness", observed, "force", force)

	fetched := o.fetchAll(ctx, vendor, logger)
	for _, f := range fetched {
		if f.err != nil {
			result.Stats.FetchErrors++
		}
		stats, err := o.silver.Build(ctx, f.source, f.items)
		if err != nil {
			return nil, err
		}
		result.Stats.Add(stats)
	}

	if err := o.refreshGold(ctx, &result.Stats); err != nil {
		return nil, err
	}

	if err := o.states.MarkBuilt(ctx, vendor, o.now()); err != nil {
		return nil, fmt.Errorf("failed to mark vendor built: %w", err)
	}

	result.Rebuilt = true
	result.Duration = o.now().Sub(start).Seconds()

	logger.Info("build completed",
		"duration_seconds", result.Duration,
		"items_fetched", result.Stats.ItemsFetched,
		"fetch_errors", result.Stats.FetchErrors,
		"sentences_kept", result.Stats.SentencesKept,
		"facts_inserted", result.Stats.FactsInserted,
		"vendors_resolved", result.Stats.VendorsResolved,
	)

	return result, nil
}

func (o *BuildOrchestrator) refreshGold(ctx context.Context, stats *domain.BuildStats) error {
	var vendors *domain.VendorSet
	if o.vocab != nil {
		vendors = o.vocab.Vendors()
	}

	inserted, err := o.extractor.Extract(ctx, vendors)
	if err != nil {
		return err
	}
	stats.FactsInserted += inserted

	resolved, err := o.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	stats.VendorsResolved = resolved
	return nil
}

type fetchResult struct {
	source domain.Source
	items  []domain.RawItem
	err    error
}

// fetchAll fetches every source for vendor in a bounded pool.
// A failed source contributes no items; results keep source order.
func (o *BuildOrchestrator) fetchAll(ctx context.Context, vendor string, logger *slog.Logger) []fetchResult {
	sources := domain.Sources()
	results := make([]fetchResult, len(sources))

	pool, err := ants.NewPool(o.fetchConcurrency)
	if err != nil {
		logger.Warn("failed to create fetch pool, fetching sequentially", "error", err)
		for i, source := range sources {
			results[i] = o.fetch(ctx, source, vendor, logger)
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, source := range sources {
		i, source := i, source
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = o.fetch(ctx, source, vendor, logger)
		}); err != nil {
			wg.Done()
			results[i] = fetchResult{source: source, err: err}
		}
	}
	wg.Wait()

	return results
}

func (o *BuildOrchestrator) fetch(ctx context.Context, source domain.Source, vendor string, logger *slog.Logger) fetchResult {
	if o.feed == nil {
		return fetchResult{source: source}
	}
	items, err := o.feed.Fetch(ctx, source, vendor)
	if err != nil {
		logger.Warn("fetch failed, continuing without items", "source", source, "error", err)
		return fetchResult{source: source, err: err}
	}
	return fetchResult{source: source, items: items}
}

// acquire polls the build lock with backoff until it is held or lockWait
// elapses. It returns false on timeout.
func (o *BuildOrchestrator) acquire(ctx context.Context) (bool, error) {
	if o.lock == nil {
		return true, nil
	}

	deadline := time.Now().Add(o.lockWait)
	backoff := lockPollMin
	for {
		acquired, err := o.lock.Acquire(ctx, o.lockName, o.lockTTL)
		if err != nil {
			return false, fmt.Errorf("failed to acquire build lock: %w", err)
		}
		if acquired {
			return true, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if backoff > remaining {
			backoff = remaining
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > lockPollMax {
			backoff = lockPollMax
		}
	}
}

// keepLock renews the build lock every lockTTL/lockRenewals until the
// returned stop is called. stop waits for the renewer to exit, so a renewal
// never races the release that follows it.
func (o *BuildOrchestrator) keepLock(ctx context.Context, logger *slog.Logger) (stop func()) {
	if o.lock == nil {
		return func() {}
	}

	interval := o.lockTTL / lockRenewals
	if interval <= 0 {
		interval = o.lockTTL
	}
	ctx = context.WithoutCancel(ctx)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := o.lock.Extend(ctx, o.lockName, o.lockTTL); err != nil {
					if errors.Is(err, domain.ErrLockNotHeld) {
						logger.Error("build lock lost while building", "lock", o.lockName, "error", err)
						return
					}
					logger.Warn("failed to extend build lock", "lock", o.lockName, "error", err)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}

func (o *BuildOrchestrator) release(ctx context.Context) {
	if o.lock == nil {
		return
	}
	// The caller's context may already be cancelled; the lock must still go.
	if err := o.lock.Release(context.WithoutCancel(ctx), o.lockName); err != nil {
		o.logger.Warn("failed to release build lock", "lock", o.lockName, "error", err)
	}
}
