package driving

import (
	"context"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// AnswerService is the read path over Gold and Silver
type AnswerService interface {
	// Answer reads the tables for an already resolved intent and vendor.
	// It never triggers a build.
	Answer(ctx context.Context, intent domain.Intent, vendor string, limit int) (*domain.Answer, error)

	// Ask infers intent and vendor from a free-text question, refreshes the
	// vendor when stale and answers
	Ask(ctx context.Context, query string, limit int) (*domain.Answer, error)

	// Search runs a full-text query over kept sentences
	Search(ctx context.Context, vendor, query string, limit int) ([]domain.SearchHit, error)
}
