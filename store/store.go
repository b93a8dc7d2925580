// Package store owns the state tree: it serializes dispatch, notifies
// subscribers, persists the theme slice through a snapshot backend and runs
// network requests against a ThemesAPI.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-query-state/actions"
	"github.com/goliatone/go-query-state/pkg/activity"
	pstate "github.com/goliatone/go-query-state/pkg/state"
	"github.com/goliatone/go-query-state/themes"
)

const (
	DomainItems   = "themes.items"
	DomainQueries = "themes.queries"
	DefaultScope  = "default"
)

var (
	// ErrNoSnapshotStore is returned by Persist and Restore without a backend.
	ErrNoSnapshotStore = errors.New("store: no snapshot store configured")
	// ErrRestoreConflict is returned by Restore when a dispatch changed the
	// theme slice while the snapshots were being loaded. The tree is left
	// untouched.
	ErrRestoreConflict = errors.New("store: themes changed during restore")
)

// followAttempts bounds the restores Follow tries for one update.
const followAttempts = 3

// Listener is called after every dispatch that changed the tree.
type Listener func(state *State, action actions.Action)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Store) { s.metrics = metrics }
}

// WithSnapshotStore sets the backend used by Persist and Restore. Documents
// are written under scope.
func WithSnapshotStore(snapshots pstate.Store[[]byte], scope string) Option {
	return func(s *Store) {
		s.snapshots = snapshots
		if scope != "" {
			s.scope = scope
		}
	}
}

// WithActivity emits theme lifecycle and snapshot events attributed to actor.
func WithActivity(emitter *activity.Emitter, actor activity.Actor) Option {
	return func(s *Store) {
		s.emitter = emitter
		s.actor = actor
	}
}

// Store is safe for concurrent use. Reads return immutable snapshots of the
// tree; writes go through Dispatch.
type Store struct {
	mu        sync.Mutex
	state     *State
	listeners map[int]Listener
	nextID    int

	logger    *zap.Logger
	metrics   *Metrics
	snapshots pstate.Store[[]byte]
	scope     string
	etags     map[string]string
	emitter   *activity.Emitter
	actor     activity.Actor
}

// New returns a store holding an empty tree with the given feature flags.
func New(features Features, opts ...Option) *Store {
	s := &Store{
		state:     NewState(features),
		listeners: map[int]Listener{},
		logger:    zap.NewNop(),
		scope:     DefaultScope,
		etags:     map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// State returns the current tree. Callers must not modify it.
func (s *Store) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns a function removing it.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Dispatch reduces action into the tree and returns the resulting state.
func (s *Store) Dispatch(action actions.Action) *State {
	return s.DispatchContext(context.Background(), action)
}

// DispatchContext is Dispatch with a context for activity hooks.
func (s *Store) DispatchContext(ctx context.Context, action actions.Action) *State {
	start := time.Now()

	s.mu.Lock()
	current := s.state
	stale := themes.IsStale(current.Themes, action)
	next := Reduce(current, action)
	s.state = next
	listeners := s.listenersLocked()
	s.mu.Unlock()

	outcome := outcomeApplied
	switch {
	case stale:
		outcome = outcomeStale
		s.logger.Debug("ignored stale completion",
			zap.String("action", string(action.Type)),
			zap.Int64("site", action.SiteID),
			zap.Uint64("seq", action.Seq))
	case next == current:
		outcome = outcomeNoop
	}
	s.metrics.observeAction(string(action.Type), outcome, time.Since(start).Seconds())

	if action.IsFailure() && action.Err != nil {
		s.logger.Warn("request failed",
			zap.String("action", string(action.Type)),
			zap.Int64("site", action.SiteID),
			zap.String("theme", action.ThemeID),
			zap.Error(action.Err))
	}

	if next != current {
		for _, fn := range listeners {
			fn(next, action)
		}
	}
	if !stale {
		s.emit(ctx, action)
	}
	return next
}

func (s *Store) listenersLocked() []Listener {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

func (s *Store) emit(ctx context.Context, action actions.Action) {
	if !s.emitter.Enabled() {
		return
	}
	event, ok := activity.EventForAction(action, s.actor)
	if !ok {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("activity hook failed", zap.String("verb", event.Verb), zap.Error(err))
	}
}

func (s *Store) ref(domain string) pstate.Ref {
	return pstate.Ref{Domain: domain, Scope: s.scope}
}

// Persist writes the durable part of the theme slice. Each document is
// guarded by the ETag last seen by this store, so a concurrent writer makes
// Persist fail with pstate.ErrETagMismatch.
func (s *Store) Persist(ctx context.Context) error {
	if s.snapshots == nil {
		return ErrNoSnapshotStore
	}
	serialized, err := themes.Serialize(s.State().Themes)
	if err != nil {
		s.countPersist("error")
		return fmt.Errorf("store: serialize: %w", err)
	}

	docs := []struct {
		domain  string
		payload []byte
	}{
		{DomainItems, serialized.Items},
		{DomainQueries, serialized.Queries},
	}
	for _, doc := range docs {
		meta, err := pstate.Save(ctx, s.snapshots, s.ref(doc.domain), doc.payload, s.etag(doc.domain), nil)
		if err != nil {
			s.countPersist("error")
			s.logger.Error("persist failed", zap.String("domain", doc.domain), zap.Error(err))
			return fmt.Errorf("store: persist %s: %w", doc.domain, err)
		}
		s.setETag(doc.domain, meta.ETag)
		s.logger.Debug("persisted snapshot",
			zap.String("domain", doc.domain),
			zap.String("snapshot", meta.SnapshotID),
			zap.Int("bytes", len(doc.payload)))
		s.emitSnapshot(ctx, activity.BuildSnapshotPersistedEvent(activity.SnapshotInput{
			Actor:      s.actor,
			Domain:     doc.domain,
			SnapshotID: meta.SnapshotID,
			ETag:       meta.ETag,
		}))
	}
	s.countPersist("ok")
	return nil
}

// Restore replaces the theme slice with the persisted one. Invalid documents
// or scopes are discarded and reported, never returned as errors; the error
// result is reserved for backend failures and ErrRestoreConflict. The swap
// only happens when the slice is still the one seen before loading, so a
// dispatch racing the load is never overwritten.
func (s *Store) Restore(ctx context.Context) (themes.DeserializeReport, error) {
	if s.snapshots == nil {
		return themes.DeserializeReport{}, ErrNoSnapshotStore
	}
	seen := s.State().Themes

	var serialized themes.Serialized
	etags := map[string]string{}
	targets := []struct {
		domain string
		into   *[]byte
	}{
		{DomainItems, &serialized.Items},
		{DomainQueries, &serialized.Queries},
	}
	for _, target := range targets {
		payload, meta, ok, err := s.snapshots.Load(ctx, s.ref(target.domain))
		if err != nil {
			return themes.DeserializeReport{}, fmt.Errorf("store: load %s: %w", target.domain, err)
		}
		if !ok {
			continue
		}
		*target.into = payload
		etags[target.domain] = meta.ETag
	}

	restored, report := themes.Deserialize(serialized)

	s.mu.Lock()
	if s.state.Themes != seen {
		s.mu.Unlock()
		s.logger.Debug("restore lost a race with dispatch", zap.String("scope", s.scope))
		return report, ErrRestoreConflict
	}
	s.state = s.state.withThemes(restored)
	next := s.state
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for domain, etag := range etags {
		s.setETag(domain, etag)
	}
	s.recordReport(report)

	for _, fn := range listeners {
		fn(next, actions.Action{Type: actions.Deserialize})
	}
	s.emitSnapshot(ctx, activity.BuildSnapshotRestoredEvent(activity.SnapshotInput{
		Actor:    s.actor,
		Domain:   DomainQueries,
		ETag:     s.etag(DomainQueries),
		Rejected: report.RejectedScopes(),
	}))
	return report, nil
}

// Follow restores the theme slice whenever another writer replaces the
// persisted queries document. It requires a backend implementing
// pstate.Watcher and returns when ctx is done. An update that keeps losing to
// local dispatches is skipped without adopting its ETag.
func (s *Store) Follow(ctx context.Context) error {
	watcher, ok := s.snapshots.(pstate.Watcher)
	if !ok {
		return fmt.Errorf("store: snapshot store %T cannot be watched", s.snapshots)
	}
	updates, err := watcher.Watch(ctx, s.ref(DomainQueries))
	if err != nil {
		return err
	}
	for meta := range updates {
		if meta.ETag != "" && meta.ETag == s.etag(DomainQueries) {
			continue
		}
		if err := s.restoreWithRetry(ctx); err != nil {
			s.logger.Warn("follow restore failed", zap.Error(err))
		}
	}
	return ctx.Err()
}

func (s *Store) restoreWithRetry(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < followAttempts; attempt++ {
		if _, err = s.Restore(ctx); !errors.Is(err, ErrRestoreConflict) {
			return err
		}
	}
	return err
}

func (s *Store) recordReport(report themes.DeserializeReport) {
	if report.OK() {
		return
	}
	if report.ItemsErr != nil {
		s.countRejection(DomainItems)
	}
	if report.QueriesErr != nil {
		s.countRejection(DomainQueries)
	}
	for range report.Rejected {
		s.countRejection("scope")
	}
	s.logger.Warn("discarded invalid persisted state",
		zap.Strings("rejected_scopes", report.RejectedScopes()),
		zap.Error(report.Err()))
}

func (s *Store) emitSnapshot(ctx context.Context, event activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("activity hook failed", zap.String("verb", event.Verb), zap.Error(err))
	}
}

func (s *Store) etag(domain string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.etags[domain]
}

func (s *Store) setETag(domain, etag string) {
	s.mu.Lock()
	s.etags[domain] = etag
	s.mu.Unlock()
}

func (s *Store) countPersist(result string) {
	if s.metrics != nil {
		s.metrics.Persisted.WithLabelValues(result).Inc()
	}
}

func (s *Store) countRejection(document string) {
	if s.metrics != nil {
		s.metrics.RestoreRejections.WithLabelValues(document).Inc()
	}
}
