package driven

import (
	"context"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// FeedClient fetches vendor-scoped raw items from an upstream feed.
// Callers treat any error as an empty result; freshness is best-effort.
type FeedClient interface {
	// Fetch returns the raw items a source holds for vendor
	Fetch(ctx context.Context, source domain.Source, vendor string) ([]domain.RawItem, error)
}
