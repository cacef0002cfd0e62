package driving

import (
	"context"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// LakeService coordinates TTL-gated Silver and Gold builds
type LakeService interface {
	// EnsureFresh rebuilds vendor when its data is stale and otherwise does
	// nothing. Upstream failures never fail the call.
	EnsureFresh(ctx context.Context, vendor string) (*domain.BuildResult, error)

	// Rebuild rebuilds vendor regardless of its TTL state
	Rebuild(ctx context.Context, vendor string) (*domain.BuildResult, error)

	// Ingest loads raw items for a source and rebuilds Silver and Gold from
	// them without touching any vendor's build state
	Ingest(ctx context.Context, source domain.Source, items []domain.RawItem) (*domain.BuildStats, error)

	// Status lists every built vendor with its freshness
	Status(ctx context.Context) ([]domain.VendorStatus, error)

	// Totals counts documents, sentences, facts and indexed sentences
	Totals(ctx context.Context) (*domain.LakeTotals, error)
}

// Refresher periodically rebuilds stale vendors
type Refresher interface {
	// Start begins the refresh loop
	Start(ctx context.Context) error

	// Stop stops the refresh loop
	Stop()

	// RefreshOnce checks every known vendor once and returns how many were
	// rebuilt or enqueued
	RefreshOnce(ctx context.Context) (int, error)
}
