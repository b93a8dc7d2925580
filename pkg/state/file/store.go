// Package file persists query-state snapshots as JSON documents on disk, one
// file per Ref, and reports external writes through fsnotify.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-state/pkg/state"
)

type envelope struct {
	Meta    state.Meta `json:"meta"`
	Payload []byte     `json:"payload"`
}

// Store is a state.Store[[]byte] rooted at a directory. Each snapshot lives
// at `<dir>/<scope>/<domain>.json`.
type Store struct {
	dir    string
	logger *zap.Logger
}

// Option configures a file Store.
type Option func(*Store)

// WithLogger sets the logger used by watchers.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Store writing under dir. The directory is created lazily.
func New(dir string, opts ...Option) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("file: directory is required")
	}
	s := &Store{dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the file holding ref.
func (s *Store) Path(ref state.Ref) (string, error) {
	if _, err := ref.Identifier(); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, strings.TrimSpace(ref.Scope), strings.TrimSpace(ref.Domain)+".json"), nil
}

func (s *Store) Load(_ context.Context, ref state.Ref) ([]byte, state.Meta, bool, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, state.Meta{}, false, err
	}
	env, ok, err := readEnvelope(path)
	if err != nil || !ok {
		return nil, state.Meta{}, false, err
	}
	return env.Payload, env.Meta, true, nil
}

func (s *Store) Save(_ context.Context, ref state.Ref, snapshot []byte, meta state.Meta) (state.Meta, error) {
	path, err := s.Path(ref)
	if err != nil {
		return state.Meta{}, err
	}
	data, err := json.Marshal(envelope{Meta: meta, Payload: snapshot})
	if err != nil {
		return state.Meta{}, fmt.Errorf("file: encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return state.Meta{}, fmt.Errorf("file: create dirs: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return state.Meta{}, fmt.Errorf("file: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return state.Meta{}, fmt.Errorf("file: rename %s: %w", path, err)
	}
	return state.CloneMeta(meta), nil
}

// Watch emits the stored Meta every time the snapshot file for ref is
// written. The channel closes when ctx is done.
func (s *Store) Watch(ctx context.Context, ref state.Ref) (<-chan state.Meta, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("file: create dirs: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("file: watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("file: watch %s: %w", dir, err)
	}

	out := make(chan state.Meta, 1)
	go s.watch(ctx, watcher, path, out)
	return out, nil
}

func (s *Store) watch(ctx context.Context, watcher *fsnotify.Watcher, path string, out chan<- state.Meta) {
	defer close(out)
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			env, found, err := readEnvelope(path)
			if err != nil {
				s.logger.Warn("snapshot watch read failed", zap.String("path", path), zap.Error(err))
				continue
			}
			if !found {
				continue
			}
			select {
			case out <- env.Meta:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("snapshot watch error", zap.String("path", path), zap.Error(err))
		}
	}
}

func readEnvelope(path string) (envelope, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return envelope{}, false, nil
		}
		return envelope{}, false, fmt.Errorf("file: read %s: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, false, fmt.Errorf("file: decode %s: %w", path, err)
	}
	if env.Payload == nil {
		env.Payload = []byte{}
	}
	return env, true, nil
}

// Close is a no-op; watchers are released through their context.
func (s *Store) Close() error { return nil }

var _ state.Watcher = (*Store)(nil)
