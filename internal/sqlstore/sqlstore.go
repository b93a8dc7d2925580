// Package sqlstore implements state.Store[[]byte] on top of database/sql. The
// sqlite and postgres backends supply the dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-query-state/pkg/state"
)

// Dialect carries the statements for one SQL engine. Statements take their
// arguments in the order documented on each field.
type Dialect struct {
	Name string
	// Schema creates the snapshot table if it does not exist.
	Schema string
	// Select reads (payload, snapshot_id, etag, updated_at, extra) by key.
	Select string
	// Upsert writes (key, payload, snapshot_id, etag, updated_at, extra).
	Upsert string
}

// Store keeps snapshots in one SQL table keyed by ref identifier.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New prepares the schema and returns a Store bound to db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%s: db is required", dialect.Name)
	}
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return nil, fmt.Errorf("%s: create snapshot table: %w", dialect.Name, err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Load(ctx context.Context, ref state.Ref) ([]byte, state.Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, state.Meta{}, false, err
	}
	var (
		payload   []byte
		snapshot  sql.NullString
		etag      sql.NullString
		updatedAt sql.NullString
		extra     sql.NullString
	)
	row := s.db.QueryRowContext(ctx, s.dialect.Select, key)
	if err := row.Scan(&payload, &snapshot, &etag, &updatedAt, &extra); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, state.Meta{}, false, nil
		}
		return nil, state.Meta{}, false, fmt.Errorf("%s: select %s: %w", s.dialect.Name, key, err)
	}

	meta := state.Meta{SnapshotID: snapshot.String, ETag: etag.String}
	if updatedAt.Valid && updatedAt.String != "" {
		ts, err := time.Parse(time.RFC3339Nano, updatedAt.String)
		if err != nil {
			return nil, state.Meta{}, false, fmt.Errorf("%s: decode updated_at for %s: %w", s.dialect.Name, key, err)
		}
		meta.UpdatedAt = ts
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return nil, state.Meta{}, false, fmt.Errorf("%s: decode extra for %s: %w", s.dialect.Name, key, err)
		}
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, meta, true, nil
}

func (s *Store) Save(ctx context.Context, ref state.Ref, snapshot []byte, meta state.Meta) (state.Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	var extra any
	if len(meta.Extra) > 0 {
		raw, err := json.Marshal(meta.Extra)
		if err != nil {
			return state.Meta{}, fmt.Errorf("%s: encode extra: %w", s.dialect.Name, err)
		}
		extra = string(raw)
	}
	var updatedAt any
	if !meta.UpdatedAt.IsZero() {
		updatedAt = meta.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	if snapshot == nil {
		snapshot = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert,
		key, snapshot, meta.SnapshotID, meta.ETag, updatedAt, extra,
	); err != nil {
		return state.Meta{}, fmt.Errorf("%s: upsert %s: %w", s.dialect.Name, key, err)
	}
	return state.CloneMeta(meta), nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
