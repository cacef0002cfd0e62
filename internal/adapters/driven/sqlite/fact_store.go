package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.FactStore          = (*FactStore)(nil)
	_ driven.LatestVersionStore = (*LatestVersionStore)(nil)
)

// FactStore implements driven.FactStore using SQLite
type FactStore struct {
	db *DB
}

// NewFactStore creates a new FactStore
func NewFactStore(db *DB) *FactStore {
	return &FactStore{db: db}
}

// InsertIgnore stores a fact unless its ID already exists
func (s *FactStore) InsertIgnore(ctx context.Context, f *domain.Fact) (bool, error) {
	query := `
		INSERT INTO gold_release_facts (fact_id, vendor, fact_type, value, fact_date, source, sent_id, url, snippet)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fact_id) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		f.ID,
		f.Vendor,
		string(f.Type),
		f.Value,
		f.Date,
		string(f.Source),
		f.SentID,
		f.URL,
		f.Snippet,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListCandidates returns every latest-version candidate
func (s *FactStore) ListCandidates(ctx context.Context) ([]*domain.Fact, error) {
	query := `
		SELECT fact_id, vendor, fact_type, value, fact_date, source, sent_id, url, snippet
		FROM gold_release_facts
		WHERE fact_type = ?
		ORDER BY vendor, fact_id
	`
	return s.query(ctx, query, string(domain.FactTypeLatestVersionCandidate))
}

// Count returns total fact count
func (s *FactStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM gold_release_facts").Scan(&count)
	return count, err
}

func (s *FactStore) query(ctx context.Context, query string, args ...any) ([]*domain.Fact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Fact
	for rows.Next() {
		var f domain.Fact
		if err := rows.Scan(&f.ID, &f.Vendor, &f.Type, &f.Value, &f.Date, &f.Source, &f.SentID, &f.URL, &f.Snippet); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// LatestVersionStore implements driven.LatestVersionStore using SQLite
type LatestVersionStore struct {
	db *DB
}

// NewLatestVersionStore creates a new LatestVersionStore
func NewLatestVersionStore(db *DB) *LatestVersionStore {
	return &LatestVersionStore{db: db}
}

// ReplaceAll swaps the whole view in one transaction
func (s *LatestVersionStore) ReplaceAll(ctx context.Context, rows []*domain.LatestVersion) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM gold_latest_version"); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO gold_latest_version (vendor, latest_version, fact_date, source, url, snippet)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.Vendor, r.Version, r.Date, string(r.Source), r.URL, r.Snippet); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get retrieves the resolved row for a vendor
func (s *LatestVersionStore) Get(ctx context.Context, vendor string) (*domain.LatestVersion, error) {
	query := `
		SELECT vendor, latest_version, fact_date, source, url, snippet
		FROM gold_latest_version
		WHERE vendor = ?
	`

	var r domain.LatestVersion
	err := s.db.QueryRowContext(ctx, query, vendor).Scan(&r.Vendor, &r.Version, &r.Date, &r.Source, &r.URL, &r.Snippet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns every resolved row ordered by vendor
func (s *LatestVersionStore) List(ctx context.Context) ([]*domain.LatestVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vendor, latest_version, fact_date, source, url, snippet
		FROM gold_latest_version
		ORDER BY vendor
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.LatestVersion
	for rows.Next() {
		var r domain.LatestVersion
		if err := rows.Scan(&r.Vendor, &r.Version, &r.Date, &r.Source, &r.URL, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
