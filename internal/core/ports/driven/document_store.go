package driven

import (
	"context"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// DocumentStore handles Silver document persistence
type DocumentStore interface {
	// Upsert creates or replaces a document keyed by its content-derived ID
	Upsert(ctx context.Context, doc *domain.Document) error

	// Count returns total document count
	Count(ctx context.Context) (int, error)
}

// SentenceStore handles Silver sentence persistence
type SentenceStore interface {
	// Upsert creates or replaces a sentence and its vendor hits
	Upsert(ctx context.Context, sentence *domain.Sentence) error

	// ListVersionBearing returns sentences with the version flag set and at
	// least one extracted version token
	ListVersionBearing(ctx context.Context) ([]*domain.Sentence, error)

	// ListForVendor returns sentences mentioning the filter's vendor,
	// newest first. CVE and PATCH intents narrow by the matching flag.
	ListForVendor(ctx context.Context, filter domain.SentenceFilter) ([]*domain.Sentence, error)

	// Count returns total sentence count
	Count(ctx context.Context) (int, error)
}

// FactStore handles Gold fact persistence. Facts are append-only.
type FactStore interface {
	// InsertIgnore stores a fact unless one with the same ID exists.
	// Returns true when a row was written.
	InsertIgnore(ctx context.Context, fact *domain.Fact) (bool, error)

	// ListCandidates returns every latest-version candidate
	ListCandidates(ctx context.Context) ([]*domain.Fact, error)

	// Count returns total fact count
	Count(ctx context.Context) (int, error)
}

// LatestVersionStore handles the derived Gold latest-version view
type LatestVersionStore interface {
	// ReplaceAll deletes every row and inserts rows in one transaction
	ReplaceAll(ctx context.Context, rows []*domain.LatestVersion) error

	// Get retrieves the resolved row for a vendor
	Get(ctx context.Context, vendor string) (*domain.LatestVersion, error)

	// List returns every resolved row ordered by vendor
	List(ctx context.Context) ([]*domain.LatestVersion, error)
}
