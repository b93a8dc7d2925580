package activity

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-query-state/actions"
)

const (
	VerbThemeDeleted      = "theme.deleted"
	VerbThemeRestored     = "theme.restored"
	VerbThemeActivated    = "theme.activated"
	VerbSnapshotPersisted = "state.persisted"
	VerbSnapshotRestored  = "state.restored"

	ObjectTheme    = "theme"
	ObjectSnapshot = "snapshot"
)

// Actor identifies who caused an event.
type Actor struct {
	ActorID  string
	UserID   string
	TenantID string
}

// SnapshotInput describes a persisted or restored snapshot.
type SnapshotInput struct {
	Actor
	Domain     string
	SnapshotID string
	ETag       string
	Rejected   []string
	OccurredAt time.Time
}

var lifecycleVerbs = map[actions.Type]string{
	actions.ThemeDeleteSuccess:   VerbThemeDeleted,
	actions.ThemeRestoreSuccess:  VerbThemeRestored,
	actions.ThemeActivateSuccess: VerbThemeActivated,
}

// EventForAction maps a successful delete, restore or activate action to an
// event. The second result is false for every other action.
func EventForAction(action actions.Action, actor Actor) (Event, bool) {
	verb, ok := lifecycleVerbs[action.Type]
	if !ok || strings.TrimSpace(action.ThemeID) == "" {
		return Event{}, false
	}
	metadata := map[string]any{"site_id": action.SiteID}
	if action.Seq != 0 {
		metadata["seq"] = action.Seq
	}
	if action.Source != "" {
		metadata["source"] = action.Source
	}
	return Event{
		Verb:           verb,
		ActorID:        actor.ActorID,
		UserID:         actor.UserID,
		TenantID:       actor.TenantID,
		SiteID:         action.SiteID,
		ObjectType:     ObjectTheme,
		ObjectID:       action.ThemeID,
		DefinitionCode: "theme:" + strings.TrimPrefix(verb, "theme."),
		Metadata:       metadata,
	}, true
}

// BuildSnapshotPersistedEvent describes a successful snapshot write.
func BuildSnapshotPersistedEvent(input SnapshotInput) Event {
	return buildSnapshotEvent(VerbSnapshotPersisted, input)
}

// BuildSnapshotRestoredEvent describes a snapshot read back into the store.
// Rejected scopes are carried in metadata.
func BuildSnapshotRestoredEvent(input SnapshotInput) Event {
	return buildSnapshotEvent(VerbSnapshotRestored, input)
}

func buildSnapshotEvent(verb string, input SnapshotInput) Event {
	metadata := map[string]any{}
	if input.Domain != "" {
		metadata["domain"] = input.Domain
	}
	if input.ETag != "" {
		metadata["etag"] = input.ETag
	}
	if len(input.Rejected) > 0 {
		metadata["rejected_scopes"] = append([]string{}, input.Rejected...)
		metadata["rejected_count"] = strconv.Itoa(len(input.Rejected))
	}

	objectID := strings.TrimSpace(input.SnapshotID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Domain)
	}
	if objectID == "" {
		objectID = ObjectSnapshot
	}
	return Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		UserID:     input.UserID,
		TenantID:   input.TenantID,
		ObjectType: ObjectSnapshot,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
