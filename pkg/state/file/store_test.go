package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/goliatone/go-query-state/pkg/state"
)

var ref = state.Ref{Domain: "themes.items", Scope: "default"}

func TestNewRequiresDirectory(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, _, ok, err := store.Load(ctx, ref); err != nil || ok {
		t.Fatalf("expected missing snapshot, ok=%v err=%v", ok, err)
	}

	saved, err := state.Save(ctx, store, ref, []byte(`{"mood":{"id":"mood"}}`), "", nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	path := filepath.Join(dir, "default", "themes.items.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected snapshot file: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed, got %v", err)
	}

	payload, meta, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(payload) != `{"mood":{"id":"mood"}}` {
		t.Fatalf("unexpected payload %s", payload)
	}
	if meta.ETag != saved.ETag || meta.SnapshotID != saved.SnapshotID {
		t.Fatalf("meta mismatch: saved=%+v loaded=%+v", saved, meta)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)
	path, _ := store.Path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, _, err := store.Load(context.Background(), ref); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestWatchReportsWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	watched, _ := New(dir)
	writer, _ := New(dir)

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := watched.Watch(ctx, ref)
	if err != nil {
		cancel()
		t.Fatalf("watch: %v", err)
	}

	saved, err := state.Save(context.Background(), writer, ref, []byte(`{}`), "", nil)
	if err != nil {
		cancel()
		t.Fatalf("save: %v", err)
	}

	select {
	case meta := <-updates:
		if meta.SnapshotID != saved.SnapshotID {
			t.Errorf("expected snapshot %q, got %q", saved.SnapshotID, meta.SnapshotID)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("timed out waiting for watch event")
	}

	cancel()
	for range updates {
	}
}
