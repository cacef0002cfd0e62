package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// LatestResolver rebuilds the Gold latest-version view.
type LatestResolver struct {
	facts  driven.FactStore
	latest driven.LatestVersionStore
	logger *slog.Logger
}

// LatestResolverConfig holds dependencies for LatestResolver.
type LatestResolverConfig struct {
	Facts  driven.FactStore
	Latest driven.LatestVersionStore
	Logger *slog.Logger
}

// NewLatestResolver creates a new resolver.
func NewLatestResolver(cfg LatestResolverConfig) *LatestResolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LatestResolver{facts: cfg.Facts, latest: cfg.Latest, logger: logger}
}

// Resolve recomputes the best fact of every vendor and replaces the whole
// view. Returns the number of vendors resolved.
func (r *LatestResolver) Resolve(ctx context.Context) (int, error) {
	facts, err := r.facts.ListCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list facts: %w", err)
	}

	rows := ResolveLatest(facts)
	if err := r.latest.ReplaceAll(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to replace latest versions: %w", err)
	}

	r.logger.Debug("latest versions resolved", "facts", len(facts), "vendors", len(rows))
	return len(rows), nil
}

// ResolveLatest picks the highest ranked fact per vendor.
// The result is ordered by vendor and independent of input order.
func ResolveLatest(facts []*domain.Fact) []*domain.LatestVersion {
	best := make(map[string]*domain.Fact)
	keys := make(map[string]domain.RankKey)

	for _, f := range facts {
		if f == nil || f.Vendor == "" {
			continue
		}
		key := f.RankKey()
		current, ok := keys[f.Vendor]
		if !ok || key.Compare(current) > 0 {
			best[f.Vendor] = f
			keys[f.Vendor] = key
		}
	}

	rows := make([]*domain.LatestVersion, 0, len(best))
	for _, f := range best {
		rows = append(rows, domain.LatestFromFact(f))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Vendor < rows[j].Vendor })
	return rows
}
