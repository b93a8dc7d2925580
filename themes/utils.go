package themes

import (
	"encoding/json"
	"strconv"
	"strings"

	qstate "github.com/goliatone/go-query-state"
)

// Theme statuses written by the optimistic delete and restore flows.
const (
	StatusDeletePending  = "__DELETE_PENDING"
	StatusRestorePending = "__RESTORE_PENDING"
	StatusTrash          = "trash"
	StatusPublish        = "publish"
)

// DefaultQuery holds the parameters implied by a theme query that omits them.
var DefaultQuery = qstate.Descriptor{
	"search": "",
	"tier":   "",
	"filter": "",
	"page":   1,
	"number": 20,
}

// ManagerOptions returns the options every per-site theme manager is built
// with.
func ManagerOptions() []qstate.ManagerOption {
	return []qstate.ManagerOption{
		qstate.WithItemKey(qstate.DefaultItemKey),
		qstate.WithDefaultQuery(DefaultQuery),
		qstate.WithMatcher(MatchesQuery),
		qstate.WithPagination("page", "number"),
	}
}

// NewManager builds an empty theme manager.
func NewManager() *qstate.Manager {
	return qstate.NewManager(ManagerOptions()...)
}

// IsPremium reports whether theme is sold through the premium catalogue.
func IsPremium(theme qstate.Entity) bool {
	return strings.HasPrefix(theme.String("stylesheet"), "premium/")
}

// IsPending reports whether status is one of the transient optimistic
// statuses.
func IsPending(status string) bool {
	return status == StatusDeletePending || status == StatusRestorePending
}

// SerializedQuery returns the request tracking key of query for siteID.
// Queries that only differ by defaults or key order share a key.
func SerializedQuery(query qstate.Descriptor, siteID int64) string {
	serialized := strings.ToLower(query.Key(DefaultQuery))
	if siteID == 0 {
		return serialized
	}
	return strconv.FormatInt(siteID, 10) + ":" + serialized
}

// NormalizeForState prepares a theme received from the network for storage in
// a site manager. Site managers are already partitioned by site, so site_ID
// is dropped, and the legacy ID field is folded into id.
func NormalizeForState(theme qstate.Entity) qstate.Entity {
	out := theme.Clone()
	if out == nil {
		return nil
	}
	if _, ok := qstate.KeyOf(out, qstate.DefaultItemKey); !ok {
		if legacy, ok := qstate.KeyOf(out, "ID"); ok {
			out[qstate.DefaultItemKey] = legacy
		}
	}
	delete(out, "ID")
	delete(out, "site_ID")
	return out
}

// SiteOf returns the site_ID of theme.
func SiteOf(theme qstate.Entity) (int64, bool) {
	switch value := theme["site_ID"].(type) {
	case float64:
		return int64(value), value != 0
	case int:
		return int64(value), value != 0
	case int64:
		return value, value != 0
	case json.Number:
		parsed, err := value.Int64()
		return parsed, err == nil && parsed != 0
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		return parsed, err == nil && parsed != 0
	default:
		return 0, false
	}
}

// MatchesQuery reports whether theme satisfies the search and tier parameters
// of query. Search is a case-insensitive substring match over the name,
// author, description and id fields.
func MatchesQuery(query qstate.Descriptor, theme qstate.Entity) bool {
	switch strings.ToLower(query.String("tier")) {
	case "premium":
		if !IsPremium(theme) {
			return false
		}
	case "free":
		if IsPremium(theme) {
			return false
		}
	}
	search := strings.ToLower(strings.TrimSpace(query.String("search")))
	if search == "" {
		return true
	}
	for _, field := range []string{"name", "author", "description", "id"} {
		if strings.Contains(strings.ToLower(theme.String(field)), search) {
			return true
		}
	}
	return false
}
