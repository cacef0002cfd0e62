package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// BuildStateStore handles per-vendor TTL state (lake_state)
type BuildStateStore interface {
	// Get retrieves build state for a vendor.
	// Returns domain.ErrNotFound when the vendor was never built.
	Get(ctx context.Context, vendor string) (*domain.BuildState, error)

	// MarkBuilt records a successful build at the given time
	MarkBuilt(ctx context.Context, vendor string, at time.Time) error

	// List retrieves build states for all vendors
	List(ctx context.Context) ([]*domain.BuildState, error)
}
