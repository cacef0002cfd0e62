package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps a sql.DB handle on a single SQLite file
type DB struct {
	*sql.DB
	path string
}

// Config holds database configuration
type Config struct {
	// Path is the database file, or MemoryPath
	Path string

	// BusyTimeoutMS is how long a writer waits on a locked database
	BusyTimeoutMS int

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int
}

// DefaultConfig returns sensible defaults
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		BusyTimeoutMS: 5000,
		MaxOpenConns:  4,
	}
}

// Open opens the database in WAL mode and applies the schema
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL", cfg.Path, cfg.BusyTimeoutMS)
	maxOpen := cfg.MaxOpenConns
	if cfg.Path == MemoryPath {
		// every connection would otherwise see its own empty database
		dsn = "file::memory:"
		maxOpen = 1
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	wrapped := &DB{DB: db, path: cfg.Path}
	if err := wrapped.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return wrapped, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// InitSchema creates all tables. Safe to run multiple times.
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Close closes the database
func (db *DB) Close() error {
	return db.DB.Close()
}

// Transaction executes a function within a database transaction
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// encodeList stores a string list as a JSON array; nil becomes [].
func encodeList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeList reads a JSON array column; malformed values read as empty.
func decodeList(s string) []string {
	var out []string
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}
