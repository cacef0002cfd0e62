package postgres

import (
	"context"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Upsert creates or replaces a document
func (s *DocumentStore) Upsert(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO silver_documents (doc_id, source, title, body_text, url, published_at, raw_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (doc_id) DO UPDATE SET
			source = EXCLUDED.source,
			title = EXCLUDED.title,
			body_text = EXCLUDED.body_text,
			url = EXCLUDED.url,
			published_at = EXCLUDED.published_at,
			raw_json = EXCLUDED.raw_json
	`
	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		string(doc.Source),
		doc.Title,
		doc.BodyText,
		doc.URL,
		doc.PublishedAt,
		doc.RawJSON,
	)
	return err
}

// Count returns total document count
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM silver_documents").Scan(&count)
	return count, err
}
