package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-query-state/pkg/state"
)

var itemsRef = state.Ref{Domain: "themes.items", Scope: "default"}

func TestSaveStampsMeta(t *testing.T) {
	store := state.NewMemoryStore[[]byte]()
	payload := []byte(`{"mood":{"id":"mood"}}`)

	meta, err := state.Save(context.Background(), store, itemsRef, payload, "", map[string]string{"source": "test"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if meta.SnapshotID == "" {
		t.Fatalf("expected snapshot id")
	}
	if meta.ETag != state.ContentETag(payload) {
		t.Fatalf("expected content etag, got %q", meta.ETag)
	}
	if meta.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at")
	}

	loaded, loadedMeta, ok, err := store.Load(context.Background(), itemsRef)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(loaded) != string(payload) {
		t.Fatalf("unexpected payload %s", loaded)
	}
	if loadedMeta.Extra["source"] != "test" {
		t.Fatalf("expected extra to persist, got %+v", loadedMeta.Extra)
	}
}

func TestSaveRejectsStaleETag(t *testing.T) {
	store := state.NewMemoryStore[[]byte]()
	ctx := context.Background()

	first, err := state.Save(ctx, store, itemsRef, []byte(`{}`), "", nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := state.Save(ctx, store, itemsRef, []byte(`{"a":{}}`), first.ETag, nil); err != nil {
		t.Fatalf("save with current etag: %v", err)
	}
	_, err = state.Save(ctx, store, itemsRef, []byte(`{"b":{}}`), first.ETag, nil)
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
}

func TestSaveRejectsInvalidRef(t *testing.T) {
	store := state.NewMemoryStore[[]byte]()
	_, err := state.Save(context.Background(), store, state.Ref{Domain: "themes.items"}, nil, "", nil)
	if !errors.Is(err, state.ErrInvalidRef) {
		t.Fatalf("expected ErrInvalidRef, got %v", err)
	}
}

func TestMutateAppliesFunction(t *testing.T) {
	store := state.NewMemoryStore[[]byte]()
	ctx := context.Background()

	var seen []byte
	_, err := state.Mutate(ctx, store, itemsRef, func(current []byte) ([]byte, error) {
		seen = current
		return []byte(`{"v":1}`), nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if seen != nil {
		t.Fatalf("expected nil for missing snapshot, got %s", seen)
	}

	_, err = state.Mutate(ctx, store, itemsRef, func(current []byte) ([]byte, error) {
		return append(current[:len(current)-1], []byte(`,"w":2}`)...), nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	got, _, _, _ := store.Load(ctx, itemsRef)
	if string(got) != `{"v":1,"w":2}` {
		t.Fatalf("unexpected payload %s", got)
	}
}

func TestMutatePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := state.Mutate(context.Background(), state.NewMemoryStore[[]byte](), itemsRef, func([]byte) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMemoryStoreDetachesPayload(t *testing.T) {
	store := state.NewMemoryStore[[]byte]()
	payload := []byte(`{"x":1}`)
	if _, err := store.Save(context.Background(), itemsRef, payload, state.Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload[2] = 'y'

	got, _, _, _ := store.Load(context.Background(), itemsRef)
	if string(got) != `{"x":1}` {
		t.Fatalf("stored payload was mutated: %s", got)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one record, got %d", store.Len())
	}
}
