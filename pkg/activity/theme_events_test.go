package activity

import (
	"testing"

	"github.com/goliatone/go-query-state/actions"
)

func TestEventForAction(t *testing.T) {
	actor := Actor{ActorID: "actor", UserID: "user"}
	cases := []struct {
		name   string
		action actions.Action
		verb   string
		ok     bool
	}{
		{name: "delete success", action: actions.Lifecycle(actions.ThemeDeleteSuccess, 2916284, "mood", 3), verb: VerbThemeDeleted, ok: true},
		{name: "restore success", action: actions.Lifecycle(actions.ThemeRestoreSuccess, 2916284, "mood", 0), verb: VerbThemeRestored, ok: true},
		{name: "activate success", action: actions.Lifecycle(actions.ThemeActivateSuccess, 2916284, "mood", 0), verb: VerbThemeActivated, ok: true},
		{name: "delete start", action: actions.Lifecycle(actions.ThemeDelete, 2916284, "mood", 0)},
		{name: "failure", action: actions.Lifecycle(actions.ThemeDeleteFailure, 2916284, "mood", 0)},
		{name: "missing theme", action: actions.Lifecycle(actions.ThemeDeleteSuccess, 2916284, " ", 0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, ok := EventForAction(tc.action, actor)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if event.Verb != tc.verb || event.ObjectType != ObjectTheme || event.ObjectID != "mood" {
				t.Fatalf("unexpected event %+v", event)
			}
			if event.SiteID != 2916284 || event.Metadata["site_id"] != int64(2916284) {
				t.Fatalf("expected site id, got %+v", event)
			}
			if event.ActorID != "actor" || event.UserID != "user" {
				t.Fatalf("expected actor fields, got %+v", event)
			}
		})
	}

	event, _ := EventForAction(actions.Lifecycle(actions.ThemeDeleteSuccess, 1, "mood", 3), actor)
	if event.Metadata["seq"] != uint64(3) || event.DefinitionCode != "theme:deleted" {
		t.Fatalf("unexpected metadata %+v", event)
	}
}

func TestBuildSnapshotEvents(t *testing.T) {
	restored := BuildSnapshotRestoredEvent(SnapshotInput{
		Domain:   "themes.queries",
		Rejected: []string{"77203074"},
	})
	if restored.Verb != VerbSnapshotRestored || restored.ObjectType != ObjectSnapshot {
		t.Fatalf("unexpected event %+v", restored)
	}
	if restored.ObjectID != "themes.queries" {
		t.Fatalf("expected domain fallback for object id, got %q", restored.ObjectID)
	}
	scopes, ok := restored.Metadata["rejected_scopes"].([]string)
	if !ok || len(scopes) != 1 || scopes[0] != "77203074" {
		t.Fatalf("expected rejected scopes, got %v", restored.Metadata["rejected_scopes"])
	}

	persisted := BuildSnapshotPersistedEvent(SnapshotInput{SnapshotID: "snap-1", ETag: "abc"})
	if persisted.ObjectID != "snap-1" || persisted.Metadata["etag"] != "abc" {
		t.Fatalf("unexpected event %+v", persisted)
	}
	if BuildSnapshotPersistedEvent(SnapshotInput{}).ObjectID != ObjectSnapshot {
		t.Fatalf("expected object type fallback for object id")
	}
}
