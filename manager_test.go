package qstate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func moodTheme() Entity {
	return Entity{"id": "mood", "name": "Mood", "site_ID": float64(5)}
}

func TestReceiveStoresUnionOfLatestVersions(t *testing.T) {
	m := NewManager()
	m = m.Receive([]Entity{{"id": "a", "v": 1.0}, {"id": "b", "v": 1.0}})
	m = m.Receive([]Entity{{"id": "b", "v": 2.0}, {"id": "c", "v": 1.0}})
	m = m.Receive([]Entity{{"id": "a", "extra": true}}, AsPatch())

	want := []Entity{
		{"id": "a", "v": 1.0, "extra": true},
		{"id": "b", "v": 2.0},
		{"id": "c", "v": 1.0},
	}
	if diff := cmp.Diff(want, m.Items()); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestReceiveFullReplaceDropsMissingFields(t *testing.T) {
	m := NewManager().Receive([]Entity{{"id": "a", "old": "x"}})
	m = m.Receive([]Entity{{"id": "a", "new": "y"}})

	item, ok := m.Item("a")
	if !ok {
		t.Fatalf("expected item a")
	}
	if _, exists := item["old"]; exists {
		t.Fatalf("expected full replace, got %v", item)
	}
}

func TestReceiveWithQueryRecordsOrderAndFound(t *testing.T) {
	m := NewManager().Receive(
		[]Entity{{"id": "b"}, {"id": "a"}},
		WithQuery(Descriptor{"search": "x"}),
		WithFound(40),
	)

	keys, ok := m.KeysForQuery(Descriptor{"search": "x"})
	if !ok {
		t.Fatalf("expected query to be cached")
	}
	if diff := cmp.Diff([]string{"b", "a"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if found, _ := m.Found(Descriptor{"search": "x"}); found != 40 {
		t.Fatalf("expected found 40, got %d", found)
	}
}

func TestReceiveWithQueryDefaultsFoundToLength(t *testing.T) {
	m := NewManager().Receive([]Entity{{"id": "a"}, {"id": "b"}}, WithQuery(Descriptor{}))
	if found, ok := m.Found(Descriptor{}); !ok || found != 2 {
		t.Fatalf("expected found 2, got %d (ok=%v)", found, ok)
	}
}

func TestQueryKeyIgnoresConstructionOrderAndDefaults(t *testing.T) {
	m := NewManager(WithDefaultQuery(Descriptor{"page": 1, "number": 20}))

	a := m.QueryKey(Descriptor{"a": 1, "b": 2})
	b := m.QueryKey(Descriptor{"b": 2, "a": 1})
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}

	withDefaults := m.QueryKey(Descriptor{"a": 1, "b": 2, "page": 1, "number": 20, "tier": nil})
	if withDefaults != a {
		t.Fatalf("expected defaults to be dropped, got %q want %q", withDefaults, a)
	}

	m = m.Receive([]Entity{{"id": "x"}}, WithQuery(Descriptor{"a": 1, "b": 2}))
	if !m.HasQuery(Descriptor{"b": 2, "a": 1, "page": 1}) {
		t.Fatalf("expected reordered descriptor to hit the cached entry")
	}
	if got := m.QueryKeys(); len(got) != 1 {
		t.Fatalf("expected one cached query, got %v", got)
	}
}

func TestReceiveIdenticalDataReturnsSameManager(t *testing.T) {
	m := NewManager().Receive([]Entity{moodTheme()}, WithQuery(Descriptor{"search": ""}), WithFound(1))

	cases := []struct {
		name string
		opts []ReceiveOption
		in   []Entity
	}{
		{name: "plain", in: []Entity{moodTheme()}},
		{name: "query", in: []Entity{moodTheme()}, opts: []ReceiveOption{WithQuery(Descriptor{"search": ""}), WithFound(1)}},
		{name: "patch", in: []Entity{{"id": "mood", "name": "Mood"}}, opts: []ReceiveOption{AsPatch()}},
		{name: "empty", in: nil},
		{name: "no identifier", in: []Entity{{"name": "anonymous"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if next := m.Receive(tc.in, tc.opts...); next != m {
				t.Fatalf("expected identical manager for no-op receive")
			}
		})
	}
}

func TestReceiveDoesNotMutateReceiver(t *testing.T) {
	base := NewManager().Receive([]Entity{{"id": "a", "v": 1.0}}, WithQuery(Descriptor{}))
	next := base.Receive([]Entity{{"id": "a", "v": 2.0}, {"id": "b"}}, WithQuery(Descriptor{}))

	if next == base {
		t.Fatalf("expected a new manager")
	}
	item, _ := base.Item("a")
	if item["v"] != 1.0 {
		t.Fatalf("receiver was mutated: %v", item)
	}
	if keys, _ := base.KeysForQuery(Descriptor{}); len(keys) != 1 {
		t.Fatalf("receiver query was mutated: %v", keys)
	}
}

func TestPatchUnknownCreatesPlaceholderWithoutQueryChange(t *testing.T) {
	m := NewManager().Receive([]Entity{{"id": "a"}}, WithQuery(Descriptor{}))
	m = m.Receive([]Entity{{"id": "ghost", "status": "__DELETE_PENDING"}}, AsPatch())

	item, ok := m.Item("ghost")
	if !ok || item["status"] != "__DELETE_PENDING" {
		t.Fatalf("expected sparse placeholder, got %v (ok=%v)", item, ok)
	}
	keys, _ := m.KeysForQuery(Descriptor{})
	if diff := cmp.Diff([]string{"a"}, keys); diff != "" {
		t.Fatalf("patch altered query (-want +got):\n%s", diff)
	}
}

func TestPatchDeepMergesNestedFields(t *testing.T) {
	m := NewManager().Receive([]Entity{{"id": "a", "meta": map[string]any{"x": 1.0, "y": 2.0}}})
	m = m.Receive([]Entity{{"id": "a", "meta": map[string]any{"y": 3.0}}}, AsPatch())

	item, _ := m.Item("a")
	want := Entity{"id": "a", "meta": map[string]any{"x": 1.0, "y": 3.0}}
	if diff := cmp.Diff(want, item); diff != "" {
		t.Fatalf("patch mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveItemPrunesQueriesAndDecrementsFound(t *testing.T) {
	m := NewManager().
		Receive([]Entity{moodTheme(), {"id": "twentysixteen"}}, WithQuery(Descriptor{"search": ""}), WithFound(12)).
		Receive([]Entity{moodTheme()}, WithQuery(Descriptor{"search": "mood"}), WithFound(1)).
		Receive([]Entity{{"id": "twentysixteen"}}, WithQuery(Descriptor{"search": "twenty"}), WithFound(1))

	m = m.RemoveItem("mood")

	if _, ok := m.Item("mood"); ok {
		t.Fatalf("expected mood to be removed")
	}
	for _, key := range m.QueryKeys() {
		keys, _ := m.KeysForQuery(ParseDescriptor(key))
		for _, id := range keys {
			if id == "mood" {
				t.Fatalf("query %s still references mood", key)
			}
		}
	}
	if found, _ := m.Found(Descriptor{"search": ""}); found != 11 {
		t.Fatalf("expected found 11, got %d", found)
	}
	if found, _ := m.Found(Descriptor{"search": "mood"}); found != 0 {
		t.Fatalf("expected found 0, got %d", found)
	}
	if found, _ := m.Found(Descriptor{"search": "twenty"}); found != 1 {
		t.Fatalf("unrelated query changed: found %d", found)
	}
}

func TestRemoveItemUnknownReturnsSameManager(t *testing.T) {
	m := NewManager().Receive([]Entity{{"id": "a"}}, WithQuery(Descriptor{}))
	if next := m.RemoveItem("missing"); next != m {
		t.Fatalf("expected identical manager")
	}
}

func TestRemoveItemFoundNeverNegative(t *testing.T) {
	m := NewManager().Receive([]Entity{{"id": "a"}}, WithQuery(Descriptor{}), WithFound(0))
	m = m.RemoveItem("a")
	if found, _ := m.Found(Descriptor{}); found != 0 {
		t.Fatalf("expected found 0, got %d", found)
	}
}

func TestMatcherUpdatesStoredQueriesOnPlainReceive(t *testing.T) {
	matcher := func(query Descriptor, item Entity) bool {
		return query.String("status") == "" || query.String("status") == item.String("status")
	}
	m := NewManager(WithMatcher(matcher)).
		Receive([]Entity{{"id": "a", "status": "publish"}}, WithQuery(Descriptor{"status": "publish"}), WithFound(1)).
		Receive([]Entity{{"id": "b", "status": "trash"}}, WithQuery(Descriptor{"status": "trash"}), WithFound(1))

	m = m.Receive([]Entity{{"id": "a", "status": "trash"}})

	published, _ := m.KeysForQuery(Descriptor{"status": "publish"})
	trashed, _ := m.KeysForQuery(Descriptor{"status": "trash"})
	if len(published) != 0 {
		t.Fatalf("expected a to leave publish query, got %v", published)
	}
	if diff := cmp.Diff([]string{"b", "a"}, trashed); diff != "" {
		t.Fatalf("trash query mismatch (-want +got):\n%s", diff)
	}
	if found, _ := m.Found(Descriptor{"status": "trash"}); found != 2 {
		t.Fatalf("expected found 2, got %d", found)
	}
}

func TestMatcherTreatsPagesAsOneResultSet(t *testing.T) {
	matcher := func(query Descriptor, item Entity) bool {
		return query.String("status") == item.String("status")
	}
	page1 := Descriptor{"status": "publish", "page": 1, "number": 2}
	page2 := Descriptor{"status": "publish", "page": 2, "number": 2}
	m := NewManager(WithMatcher(matcher), WithPagination("page", "number")).
		Receive([]Entity{{"id": "a", "status": "publish"}}, WithQuery(page1), WithFound(3)).
		Receive([]Entity{{"id": "b", "status": "publish"}}, WithQuery(page2), WithFound(3))

	m = m.Receive([]Entity{{"id": "c", "status": "publish"}})
	first, _ := m.KeysForQuery(page1)
	second, _ := m.KeysForQuery(page2)
	if diff := cmp.Diff([]string{"a", "c"}, first); diff != "" {
		t.Fatalf("page 1 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, second); diff != "" {
		t.Fatalf("page 2 mismatch (-want +got):\n%s", diff)
	}

	m = m.Receive([]Entity{{"id": "b", "status": "trash"}})
	second, _ = m.KeysForQuery(page2)
	if len(second) != 0 {
		t.Fatalf("expected b to leave page 2, got %v", second)
	}
	for _, page := range []Descriptor{page1, page2} {
		if found, _ := m.Found(page); found != 3 {
			t.Fatalf("page %v: expected found 3, got %d", page["page"], found)
		}
	}
}

func TestExportRoundTrip(t *testing.T) {
	m := NewManager().Receive([]Entity{moodTheme()}, WithQuery(Descriptor{"search": ""}), WithFound(3))
	snapshot := m.Export()

	restored := FromSnapshot(snapshot)
	if diff := cmp.Diff(m.Items(), restored.Items()); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if found, _ := restored.Found(Descriptor{"search": ""}); found != 3 {
		t.Fatalf("expected found 3, got %d", found)
	}
	if got := snapshot.MissingReferences(); len(got) != 0 {
		t.Fatalf("expected no dangling references, got %v", got)
	}

	snapshot.Data.Queries[`{"search":"x"}`] = QueryResult{ItemKeys: []string{"ghost"}, Found: 1}
	if got := snapshot.MissingReferences(); len(got) != 1 {
		t.Fatalf("expected one dangling query, got %v", got)
	}
}

func TestNilManagerReadsAreSafe(t *testing.T) {
	var m *Manager
	if m.Len() != 0 || m.HasQuery(Descriptor{}) || m.Items() != nil {
		t.Fatalf("expected empty sentinels from nil manager")
	}
	if _, ok := m.Item("a"); ok {
		t.Fatalf("expected no item from nil manager")
	}
	if next := m.Receive([]Entity{{"id": "a"}}); next.Len() != 1 {
		t.Fatalf("expected receive on nil manager to create one")
	}
}

func TestKeyOfNormalizesNumericIdentifiers(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{in: "mood", want: "mood", ok: true},
		{in: " spaced ", want: "spaced", ok: true},
		{in: float64(5), want: "5", ok: true},
		{in: 7, want: "7", ok: true},
		{in: "", ok: false},
		{in: nil, ok: false},
	}
	for _, tc := range cases {
		got, ok := KeyOf(Entity{"id": tc.in}, "")
		if got != tc.want || ok != tc.ok {
			t.Fatalf("KeyOf(%v) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
