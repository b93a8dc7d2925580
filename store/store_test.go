package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	qstate "github.com/goliatone/go-query-state"
	"github.com/goliatone/go-query-state/actions"
	"github.com/goliatone/go-query-state/pkg/activity"
	pstate "github.com/goliatone/go-query-state/pkg/state"
	"github.com/goliatone/go-query-state/store"
	"github.com/goliatone/go-query-state/themes"
)

const siteID int64 = 2916284

var defaultQuery = qstate.Descriptor{"search": ""}

func mood() qstate.Entity {
	return qstate.Entity{"id": "mood", "name": "Mood", "author": "Automattic", "site_ID": float64(siteID)}
}

func newStore(t *testing.T, opts ...store.Option) (*store.Store, *store.Metrics) {
	t.Helper()
	metrics := store.NewMetrics(prometheus.NewRegistry(), "test")
	opts = append([]store.Option{store.WithMetrics(metrics)}, opts...)
	return store.New(store.Features{store.FeatureThemeDetails: true}, opts...), metrics
}

func TestDispatchReducesAndNotifies(t *testing.T) {
	s, metrics := newStore(t)

	var seen []actions.Type
	unsubscribe := s.Subscribe(func(_ *store.State, action actions.Action) {
		seen = append(seen, action.Type)
	})

	before := s.State()
	after := s.Dispatch(actions.RequestThemesSuccess(siteID, defaultQuery, []qstate.Entity{mood()}, 1, 0))
	if after == before {
		t.Fatalf("expected a new state")
	}
	if s.State() != after {
		t.Fatalf("expected State to return the latest tree")
	}
	if !after.Features.Enabled(store.FeatureThemeDetails) {
		t.Fatalf("expected features to be carried over")
	}

	again := s.Dispatch(actions.RequestThemesSuccess(siteID, defaultQuery, []qstate.Entity{mood()}, 1, 0))
	if again != after {
		t.Fatalf("expected identical dispatch to keep the same state")
	}
	if len(seen) != 1 {
		t.Fatalf("expected one notification, got %v", seen)
	}

	unsubscribe()
	s.Dispatch(actions.Action{Type: actions.Reset})
	if len(seen) != 1 {
		t.Fatalf("expected no notification after unsubscribe, got %v", seen)
	}

	applied := testutil.ToFloat64(metrics.Actions.WithLabelValues(string(actions.ThemesRequestSuccess), "applied"))
	noop := testutil.ToFloat64(metrics.Actions.WithLabelValues(string(actions.ThemesRequestSuccess), "noop"))
	if applied != 1 || noop != 1 {
		t.Fatalf("expected applied=1 noop=1, got %v/%v", applied, noop)
	}
}

func TestDispatchCountsStaleCompletions(t *testing.T) {
	s, metrics := newStore(t)
	older := []qstate.Entity{{"id": "older", "site_ID": float64(siteID)}}
	newer := []qstate.Entity{mood()}

	s.Dispatch(actions.RequestThemes(siteID, defaultQuery, 1))
	s.Dispatch(actions.RequestThemes(siteID, defaultQuery, 2))
	s.Dispatch(actions.RequestThemesSuccess(siteID, defaultQuery, newer, 1, 2))
	state := s.Dispatch(actions.RequestThemesSuccess(siteID, defaultQuery, older, 1, 1))

	keys, _ := state.Themes.Manager(siteID).KeysForQuery(defaultQuery)
	if len(keys) != 1 || keys[0] != "mood" {
		t.Fatalf("expected newest result to win, got %v", keys)
	}
	if got := testutil.ToFloat64(metrics.Actions.WithLabelValues(string(actions.ThemesRequestSuccess), "stale")); got != 1 {
		t.Fatalf("expected one stale completion, got %v", got)
	}
}

func TestDispatchEmitsLifecycleActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	s, _ := newStore(t, store.WithActivity(emitter, activity.Actor{UserID: "user"}))

	s.Dispatch(actions.RequestThemesSuccess(siteID, defaultQuery, []qstate.Entity{mood()}, 1, 0))
	s.Dispatch(actions.Lifecycle(actions.ThemeDelete, siteID, "mood", 0))
	s.Dispatch(actions.Lifecycle(actions.ThemeDeleteSuccess, siteID, "mood", 0))

	verbs := capture.Verbs()
	if len(verbs) != 1 || verbs[0] != activity.VerbThemeDeleted {
		t.Fatalf("expected one theme.deleted event, got %v", verbs)
	}
	if capture.Events[0].UserID != "user" || capture.Events[0].Channel != activity.DefaultChannel {
		t.Fatalf("unexpected event %+v", capture.Events[0])
	}
}

func TestPersistAndRestore(t *testing.T) {
	snapshots := pstate.NewMemoryStore[[]byte]()
	writer, _ := newStore(t, store.WithSnapshotStore(snapshots, "tenant-1"))

	writer.Dispatch(actions.RequestThemesSuccess(siteID, defaultQuery, []qstate.Entity{mood()}, 1, 0))
	writer.Dispatch(actions.ReceiveThemes(mood()))
	writer.Dispatch(actions.Lifecycle(actions.ThemeDelete, siteID, "mood", 0))
	if err := writer.Persist(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if snapshots.Len() != 2 {
		t.Fatalf("expected two documents, got %d", snapshots.Len())
	}

	reader, _ := newStore(t, store.WithSnapshotStore(snapshots, "tenant-1"))
	report, err := reader.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected clean restore, got %v", report.Err())
	}

	restored := reader.State().Themes
	item, ok := restored.Manager(siteID).Item("mood")
	if !ok {
		t.Fatalf("expected mood to be restored")
	}
	if item.String("status") != themes.StatusTrash {
		t.Fatalf("expected pending status persisted as trash, got %q", item.String("status"))
	}
	if restored.IsRequestingQuery(siteID, defaultQuery) {
		t.Fatalf("expected restored request flags to be empty")
	}
}

func TestRestoreDiscardsInvalidScope(t *testing.T) {
	ctx := context.Background()
	snapshots := pstate.NewMemoryStore[[]byte]()
	queries := []byte(`{"2916284":{"data":{"items":{},"queries":{"[]":{"itemKeys":["ghost"],"found":1}}},"options":{"itemKey":"id"}}}`)
	if _, err := pstate.Save(ctx, snapshots, pstate.Ref{Domain: store.DomainQueries, Scope: store.DefaultScope}, queries, "", nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	s, metrics := newStore(t, store.WithSnapshotStore(snapshots, ""), store.WithActivity(emitter, activity.Actor{}))

	var notified []actions.Type
	s.Subscribe(func(_ *store.State, action actions.Action) { notified = append(notified, action.Type) })

	report, err := s.Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if scopes := report.RejectedScopes(); len(scopes) != 1 || scopes[0] != "2916284" {
		t.Fatalf("expected scope 2916284 rejected, got %v", scopes)
	}
	if s.State().Themes.Manager(siteID) != nil {
		t.Fatalf("expected rejected scope to fall back to empty")
	}
	if got := testutil.ToFloat64(metrics.RestoreRejections.WithLabelValues("scope")); got != 1 {
		t.Fatalf("expected one scope rejection, got %v", got)
	}
	if len(notified) != 1 || notified[0] != actions.Deserialize {
		t.Fatalf("expected deserialize notification, got %v", notified)
	}
	if verbs := capture.Verbs(); len(verbs) != 1 || verbs[0] != activity.VerbSnapshotRestored {
		t.Fatalf("expected restored event, got %v", verbs)
	}
}

func TestPersistDetectsConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	snapshots := pstate.NewMemoryStore[[]byte]()
	first, _ := newStore(t, store.WithSnapshotStore(snapshots, ""))
	second, _ := newStore(t, store.WithSnapshotStore(snapshots, ""))

	if err := first.Persist(ctx); err != nil {
		t.Fatalf("first persist: %v", err)
	}
	if _, err := second.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	second.Dispatch(actions.RequestThemesSuccess(siteID, defaultQuery, []qstate.Entity{mood()}, 1, 0))
	if err := second.Persist(ctx); err != nil {
		t.Fatalf("second persist: %v", err)
	}

	first.Dispatch(actions.ReceiveThemes(mood()))
	err := first.Persist(ctx)
	if !errors.Is(err, pstate.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
}

// interleavingStore runs onLoad before the first Load it serves.
type interleavingStore struct {
	pstate.Store[[]byte]
	onLoad func()
}

func (s *interleavingStore) Load(ctx context.Context, ref pstate.Ref) ([]byte, pstate.Meta, bool, error) {
	if fn := s.onLoad; fn != nil {
		s.onLoad = nil
		fn()
	}
	return s.Store.Load(ctx, ref)
}

func TestRestoreKeepsDispatchDuringLoad(t *testing.T) {
	ctx := context.Background()
	shared := pstate.NewMemoryStore[[]byte]()
	writer, _ := newStore(t, store.WithSnapshotStore(shared, ""))
	writer.Dispatch(actions.RequestThemesSuccess(siteID, defaultQuery, []qstate.Entity{{"id": "persisted", "site_ID": float64(siteID)}}, 1, 0))
	if err := writer.Persist(ctx); err != nil {
		t.Fatalf("persist: %v", err)
	}

	snapshots := &interleavingStore{Store: shared}
	s, _ := newStore(t, store.WithSnapshotStore(snapshots, ""))
	snapshots.onLoad = func() {
		s.Dispatch(actions.RequestThemesSuccess(siteID, defaultQuery, []qstate.Entity{mood()}, 1, 0))
	}

	if _, err := s.Restore(ctx); !errors.Is(err, store.ErrRestoreConflict) {
		t.Fatalf("expected ErrRestoreConflict, got %v", err)
	}
	keys, _ := s.State().Themes.Manager(siteID).KeysForQuery(defaultQuery)
	if len(keys) != 1 || keys[0] != "mood" {
		t.Fatalf("expected the dispatched result kept, got %v", keys)
	}

	if _, err := s.Restore(ctx); err != nil {
		t.Fatalf("second restore: %v", err)
	}
	keys, _ = s.State().Themes.Manager(siteID).KeysForQuery(defaultQuery)
	if len(keys) != 1 || keys[0] != "persisted" {
		t.Fatalf("expected persisted result after a clean restore, got %v", keys)
	}
}

func TestPersistWithoutBackend(t *testing.T) {
	s, _ := newStore(t)
	if err := s.Persist(context.Background()); !errors.Is(err, store.ErrNoSnapshotStore) {
		t.Fatalf("expected ErrNoSnapshotStore, got %v", err)
	}
	if _, err := s.Restore(context.Background()); !errors.Is(err, store.ErrNoSnapshotStore) {
		t.Fatalf("expected ErrNoSnapshotStore, got %v", err)
	}
}
