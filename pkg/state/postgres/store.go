// Package postgres persists query-state snapshots in PostgreSQL through the
// pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-query-state/internal/sqlstore"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
)

var dialect = sqlstore.Dialect{
	Name: "postgres",
	Schema: `CREATE TABLE IF NOT EXISTS query_state (
		key TEXT PRIMARY KEY,
		payload BYTEA NOT NULL,
		snapshot_id TEXT,
		etag TEXT,
		updated_at TEXT,
		extra TEXT
	)`,
	Select: `SELECT payload, snapshot_id, etag, updated_at, extra FROM query_state WHERE key = $1`,
	Upsert: `INSERT INTO query_state (key, payload, snapshot_id, etag, updated_at, extra)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			snapshot_id = EXCLUDED.snapshot_id,
			etag = EXCLUDED.etag,
			updated_at = EXCLUDED.updated_at,
			extra = EXCLUDED.extra`,
}

// Store is a state.Store[[]byte] backed by a PostgreSQL table.
type Store struct {
	*sqlstore.Store
}

// Open connects using dsn, verifies the connection and prepares the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	inner, err := sqlstore.New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: inner}, nil
}
