// Package sqlite persists query-state snapshots in a single SQLite table
// using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goliatone/go-query-state/internal/sqlstore"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const DefaultPath = "query-state.db"

var dialect = sqlstore.Dialect{
	Name: "sqlite",
	Schema: `CREATE TABLE IF NOT EXISTS query_state (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		snapshot_id TEXT,
		etag TEXT,
		updated_at TEXT,
		extra TEXT
	)`,
	Select: `SELECT payload, snapshot_id, etag, updated_at, extra FROM query_state WHERE key = ?`,
	Upsert: `INSERT INTO query_state (key, payload, snapshot_id, etag, updated_at, extra)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			snapshot_id = excluded.snapshot_id,
			etag = excluded.etag,
			updated_at = excluded.updated_at,
			extra = excluded.extra`,
}

// Store is a state.Store[[]byte] backed by a SQLite database file.
type Store struct {
	*sqlstore.Store
	path string
}

// Open creates the parent directory and the snapshot table when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("sqlite: create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	inner, err := sqlstore.New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: inner, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }
