package driven

import (
	"context"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// SentenceIndex is a full-text index over kept Silver sentences
type SentenceIndex interface {
	// Index adds or replaces sentences, keyed by sentence ID
	Index(ctx context.Context, sentences []*domain.Sentence) error

	// Search runs a free-text query, optionally restricted to a vendor
	Search(ctx context.Context, vendor, query string, limit int) ([]domain.SearchHit, error)

	// Count returns the number of indexed sentences
	Count(ctx context.Context) (uint64, error)

	// Close releases index resources
	Close() error
}
