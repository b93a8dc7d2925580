// Package usersink records theme activity in a go-users activity log.
package usersink

import (
	"context"
	"strconv"
	"strings"

	"github.com/goliatone/go-query-state/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards theme and snapshot events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Channel is used for events without one, before activity.DefaultChannel.
	Channel string
	// QualifyThemes prefixes theme object ids with their site, e.g.
	// "2916284/mood", so the same theme on two sites stays distinct.
	QualifyThemes bool
	// Verbs limits the forwarded events. Empty forwards everything.
	Verbs []string
}

func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if !normalized.Valid() || !h.accepts(normalized.Verb) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, h.record(normalized))
}

func (h Hook) accepts(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	for _, candidate := range h.Verbs {
		if candidate == verb {
			return true
		}
	}
	return false
}

func (h Hook) record(event activity.Event) usertypes.ActivityRecord {
	data := make(map[string]any, len(event.Metadata)+3)
	for key, value := range event.Metadata {
		data[key] = value
	}
	if event.DefinitionCode != "" {
		data["definition_code"] = event.DefinitionCode
	}
	if event.SiteID != 0 {
		data["site_id"] = event.SiteID
	}
	if len(event.Recipients) > 0 {
		data["recipients"] = append([]string{}, event.Recipients...)
	}
	if len(data) == 0 {
		data = nil
	}

	objectID := event.ObjectID
	if h.QualifyThemes && event.ObjectType == activity.ObjectTheme && event.SiteID != 0 {
		objectID = strconv.FormatInt(event.SiteID, 10) + "/" + objectID
	}

	return usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID),
		UserID:     parseUUID(event.UserID),
		TenantID:   parseUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   objectID,
		Channel:    firstNonEmpty(event.Channel, h.Channel, activity.DefaultChannel),
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
}

// parseUUID maps malformed identifiers to uuid.Nil.
func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
