package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SentenceStore = (*SentenceStore)(nil)

const sentenceColumns = `s.sent_id, s.doc_id, s.source, s.url, s.published_at, s.text, s.text_lc,
	s.has_cve, s.has_patch, s.has_version, s.versions, s.cves, s.vendors, s.vendor_count`

// SentenceStore implements driven.SentenceStore using PostgreSQL
type SentenceStore struct {
	db *DB
}

// NewSentenceStore creates a new SentenceStore
func NewSentenceStore(db *DB) *SentenceStore {
	return &SentenceStore{db: db}
}

// Upsert creates or replaces a sentence and its vendor rows
func (s *SentenceStore) Upsert(ctx context.Context, sent *domain.Sentence) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO silver_sentences (sent_id, doc_id, source, url, published_at, text, text_lc,
				has_cve, has_patch, has_version, versions, cves, vendors, vendor_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (sent_id) DO UPDATE SET
				doc_id = EXCLUDED.doc_id,
				source = EXCLUDED.source,
				url = EXCLUDED.url,
				published_at = EXCLUDED.published_at,
				text = EXCLUDED.text,
				text_lc = EXCLUDED.text_lc,
				has_cve = EXCLUDED.has_cve,
				has_patch = EXCLUDED.has_patch,
				has_version = EXCLUDED.has_version,
				versions = EXCLUDED.versions,
				cves = EXCLUDED.cves,
				vendors = EXCLUDED.vendors,
				vendor_count = EXCLUDED.vendor_count
		`
		_, err := tx.ExecContext(ctx, query,
			sent.ID,
			sent.DocID,
			string(sent.Source),
			sent.URL,
			sent.PublishedAt,
			sent.Text,
			sent.TextLC,
			sent.HasCVE,
			sent.HasPatch,
			sent.HasVersion,
			encodeList(sent.Versions),
			encodeList(sent.CVEs),
			encodeList(sent.Vendors),
			sent.VendorCount,
		)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM silver_sentence_vendors WHERE sent_id = $1", sent.ID); err != nil {
			return err
		}
		for _, vendor := range sent.Vendors {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO silver_sentence_vendors (sent_id, vendor) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				sent.ID, vendor,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListVersionBearing returns version-flagged sentences with at least one version token
func (s *SentenceStore) ListVersionBearing(ctx context.Context) ([]*domain.Sentence, error) {
	query := `
		SELECT ` + sentenceColumns + `
		FROM silver_sentences s
		WHERE s.has_version AND jsonb_array_length(s.versions) > 0
		ORDER BY s.sent_id
	`
	return s.query(ctx, query)
}

// ListForVendor returns a vendor's sentences, newest first
func (s *SentenceStore) ListForVendor(ctx context.Context, filter domain.SentenceFilter) ([]*domain.Sentence, error) {
	query := `
		SELECT ` + sentenceColumns + `
		FROM silver_sentences s
		JOIN silver_sentence_vendors v ON v.sent_id = s.sent_id
		WHERE v.vendor = $1`

	switch filter.Intent {
	case domain.IntentCVE:
		query += ` AND s.has_cve`
	case domain.IntentPatch:
		query += ` AND s.has_patch`
	}

	// LIMIT NULL means no limit
	var limit sql.NullInt64
	if filter.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(filter.Limit), Valid: true}
	}
	query += ` ORDER BY s.published_at DESC, s.sent_id ASC LIMIT $2`

	return s.query(ctx, query, filter.Vendor, limit)
}

// Count returns total sentence count
func (s *SentenceStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM silver_sentences").Scan(&count)
	return count, err
}

func (s *SentenceStore) query(ctx context.Context, query string, args ...any) ([]*domain.Sentence, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Sentence
	for rows.Next() {
		sent, err := scanSentence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sentence: %w", err)
		}
		out = append(out, sent)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSentence(row scanner) (*domain.Sentence, error) {
	var sent domain.Sentence
	var versions, cves, vendors []byte

	err := row.Scan(
		&sent.ID,
		&sent.DocID,
		&sent.Source,
		&sent.URL,
		&sent.PublishedAt,
		&sent.Text,
		&sent.TextLC,
		&sent.HasCVE,
		&sent.HasPatch,
		&sent.HasVersion,
		&versions,
		&cves,
		&vendors,
		&sent.VendorCount,
	)
	if err != nil {
		return nil, err
	}

	sent.Versions = decodeList(versions)
	sent.CVEs = decodeList(cves)
	sent.Vendors = decodeList(vendors)
	return &sent, nil
}
