package backends

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-query-state/pkg/state"
	"github.com/goliatone/go-query-state/pkg/state/file"
	"github.com/goliatone/go-query-state/pkg/state/sqlite"
)

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cases := []struct {
		name  string
		dsn   string
		check func(t *testing.T, b Backend)
	}{
		{name: "empty", dsn: "", check: func(t *testing.T, b Backend) {
			if _, ok := b.(memoryBackend); !ok {
				t.Fatalf("expected memory backend, got %T", b)
			}
		}},
		{name: "memory", dsn: "memory://", check: func(t *testing.T, b Backend) {
			if _, ok := b.(memoryBackend); !ok {
				t.Fatalf("expected memory backend, got %T", b)
			}
		}},
		{name: "file", dsn: "file://" + filepath.Join(dir, "snapshots"), check: func(t *testing.T, b Backend) {
			if _, ok := b.(*file.Store); !ok {
				t.Fatalf("expected file backend, got %T", b)
			}
		}},
		{name: "bare path", dsn: filepath.Join(dir, "bare"), check: func(t *testing.T, b Backend) {
			if _, ok := b.(*file.Store); !ok {
				t.Fatalf("expected file backend, got %T", b)
			}
		}},
		{name: "sqlite", dsn: "sqlite://" + filepath.Join(dir, "state.db"), check: func(t *testing.T, b Backend) {
			store, ok := b.(*sqlite.Store)
			if !ok {
				t.Fatalf("expected sqlite backend, got %T", b)
			}
			if store.Path() != filepath.Join(dir, "state.db") {
				t.Fatalf("unexpected sqlite path %q", store.Path())
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend, err := Open(ctx, tc.dsn)
			if err != nil {
				t.Fatalf("open %q: %v", tc.dsn, err)
			}
			t.Cleanup(func() { _ = backend.Close() })
			tc.check(t, backend)

			ref := state.Ref{Domain: "themes.items", Scope: "default"}
			if _, err := state.Save(ctx, backend, ref, []byte(`{}`), "", nil); err != nil {
				t.Fatalf("save: %v", err)
			}
			if _, _, ok, err := backend.Load(ctx, ref); err != nil || !ok {
				t.Fatalf("load: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "redis://localhost:6379")
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestRegisterOverridesScheme(t *testing.T) {
	called := false
	Register("custom", func(_ context.Context, dsn *url.URL) (Backend, error) {
		called = dsn.Host == "box"
		return memoryBackend{state.NewMemoryStore[[]byte]()}, nil
	})
	if _, err := Open(context.Background(), "CUSTOM://box"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !called {
		t.Fatalf("expected registered factory to run")
	}
}

func TestS3ConfigFromDSN(t *testing.T) {
	parsed, err := url.Parse("s3://KEY:SECRET@snapshots/qstate/prod?region=eu-west-1&endpoint=http://minio:9000&path_style=true")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := s3Config(parsed)
	if cfg.Bucket != "snapshots" || cfg.Prefix != "qstate/prod" {
		t.Fatalf("unexpected bucket/prefix %+v", cfg)
	}
	if cfg.Region != "eu-west-1" || cfg.Endpoint != "http://minio:9000" || !cfg.PathStyle {
		t.Fatalf("unexpected options %+v", cfg)
	}
	if cfg.AccessKeyID != "KEY" || cfg.SecretAccessKey != "SECRET" {
		t.Fatalf("unexpected credentials %+v", cfg)
	}
}
