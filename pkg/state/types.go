package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrInvalidRef = errors.New("state: invalid ref")

// Ref identifies one persisted snapshot: a document (Domain) within a
// namespace (Scope).
type Ref struct {
	Domain string
	Scope  string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Watcher is implemented by stores that can report external writes.
type Watcher interface {
	Watch(ctx context.Context, ref Ref) (<-chan Meta, error)
}

// Mutator derives the next snapshot from the current one.
type Mutator func(current []byte) ([]byte, error)

// Identifier returns the canonical storage key, `<scope>/<domain>`.
func (r Ref) Identifier() (string, error) {
	domain := strings.TrimSpace(r.Domain)
	scope := strings.TrimSpace(r.Scope)
	if domain == "" {
		return "", fmt.Errorf("%w: domain is required", ErrInvalidRef)
	}
	if scope == "" {
		return "", fmt.Errorf("%w: scope is required for domain %q", ErrInvalidRef, domain)
	}
	if strings.Contains(domain, "/") {
		return "", fmt.Errorf("%w: domain %q contains '/'", ErrInvalidRef, domain)
	}
	return scope + "/" + domain, nil
}

func (r Ref) String() string {
	key, err := r.Identifier()
	if err != nil {
		return fmt.Sprintf("%s/%s", r.Scope, r.Domain)
	}
	return key
}

// ContentETag returns a stable digest for a payload.
func ContentETag(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:16])
}

// Save writes payload under ref, stamping a fresh SnapshotID and a content
// ETag. When expected is non-empty and the stored snapshot carries a
// different ETag the write is rejected with ErrETagMismatch.
func Save(ctx context.Context, store Store[[]byte], ref Ref, payload []byte, expected string, extra map[string]string) (Meta, error) {
	if store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}

	_, loaded, ok, err := store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %s: %w", ref, err)
	}
	if ok && expected != "" && loaded.ETag != "" && loaded.ETag != expected {
		return loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected, loaded.ETag)
	}

	meta := mergeMeta(loaded, Meta{
		SnapshotID: uuid.NewString(),
		ETag:       ContentETag(payload),
		UpdatedAt:  time.Now().UTC(),
		Extra:      extra,
	})
	saved, err := store.Save(ctx, ref, payload, meta)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %s: %w", ref, err)
	}
	return saved, nil
}

// Mutate loads one snapshot, applies fn, then saves the result guarded by
// the loaded ETag. A missing snapshot is passed to fn as nil.
func Mutate(ctx context.Context, store Store[[]byte], ref Ref, fn Mutator) (Meta, error) {
	if store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return Meta{}, fmt.Errorf("state: mutator is required")
	}
	current, loaded, ok, err := store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %s: %w", ref, err)
	}
	if !ok {
		current = nil
		loaded = Meta{}
	}
	next, err := fn(current)
	if err != nil {
		return loaded, err
	}
	return Save(ctx, store, ref, next, loaded.ETag, nil)
}

func mergeMeta(base, override Meta) Meta {
	out := cloneMeta(base)
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}

// CloneMeta returns a copy of meta that shares no maps with the input.
func CloneMeta(meta Meta) Meta { return cloneMeta(meta) }
