package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/goliatone/go-query-state/pkg/state"
)

const dsnEnv = "QSTATE_TEST_POSTGRES_DSN"

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	ctx := context.Background()
	store, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ref := state.Ref{Domain: "themes.items", Scope: "test-" + t.Name()}
	saved, err := state.Save(ctx, store, ref, []byte(`{"mood":{"id":"mood"}}`), "", map[string]string{"source": "test"})
	if err != nil {
		t.Fatalf("save: %v", err)
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
