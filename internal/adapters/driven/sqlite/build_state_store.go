package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.BuildStateStore = (*BuildStateStore)(nil)

// BuildStateStore implements driven.BuildStateStore on the lake_state table
type BuildStateStore struct {
	db *DB
}

// NewBuildStateStore creates a new BuildStateStore
func NewBuildStateStore(db *DB) *BuildStateStore {
	return &BuildStateStore{db: db}
}

// Get retrieves build state for a vendor
func (s *BuildStateStore) Get(ctx context.Context, vendor string) (*domain.BuildState, error) {
	var state domain.BuildState
	err := s.db.QueryRowContext(ctx,
		"SELECT vendor, last_built_at FROM lake_state WHERE vendor = ?", vendor,
	).Scan(&state.Vendor, &state.LastBuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// MarkBuilt records a successful build
func (s *BuildStateStore) MarkBuilt(ctx context.Context, vendor string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lake_state (vendor, last_built_at) VALUES (?, ?)
		ON CONFLICT (vendor) DO UPDATE SET last_built_at = excluded.last_built_at
	`, vendor, domain.FormatTimestamp(at))
	return err
}

// List retrieves build states for all vendors
func (s *BuildStateStore) List(ctx context.Context) ([]*domain.BuildState, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT vendor, last_built_at FROM lake_state ORDER BY vendor")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.BuildState
	for rows.Next() {
		var state domain.BuildState
		if err := rows.Scan(&state.Vendor, &state.LastBuiltAt); err != nil {
			return nil, err
		}
		out = append(out, &state)
	}
	return out, rows.Err()
}
