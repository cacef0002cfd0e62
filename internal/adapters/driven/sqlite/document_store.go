package sqlite

import (
	"context"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using SQLite
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
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (doc_id) DO UPDATE SET
			source = excluded.source,
			title = excluded.title,
			body_text = excluded.body_text,
			url = excluded.url,
			published_at = excluded.published_at,
			raw_json = excluded.raw_json
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
