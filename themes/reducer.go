package themes

import (
	"fmt"
	"sort"

	qstate "github.com/goliatone/go-query-state"
	"github.com/goliatone/go-query-state/actions"
	"github.com/goliatone/go-query-state/layering"
)

// Reduce returns the theme slice after action. It returns state itself when
// the action changes nothing, so callers can compare pointers.
//
// Completion actions carrying a Seq lower than the newest request started for
// the same key are stale and ignored entirely.
func Reduce(state *State, action actions.Action) *State {
	if state == nil {
		state = NewState()
	}
	if action.Type == actions.Reset {
		if state.isEmpty() {
			return state
		}
		return NewState()
	}
	if IsStale(state, action) {
		return state
	}

	next := *state
	changed := false
	if items, ok := reduceItems(state.Items, action); ok {
		next.Items, changed = items, true
	}
	if requests, ok := reduceSiteRequests(state.SiteRequests, action); ok {
		next.SiteRequests, changed = requests, true
	}
	if requests, ok := reduceQueryRequests(state.QueryRequests, action); ok {
		next.QueryRequests, changed = requests, true
	}
	if queries, ok := reduceQueries(state.Queries, action); ok {
		next.Queries, changed = queries, true
	}
	if active, ok := reduceActive(state.Active, action); ok {
		next.Active, changed = active, true
	}
	if activating, ok := reduceActivating(state.Activating, action); ok {
		next.Activating, changed = activating, true
	}
	if seqs, ok := reduceRequestSeq(state.RequestSeq, action); ok {
		next.RequestSeq, changed = seqs, true
	}
	if !changed {
		return state
	}
	return &next
}

// IsStale reports whether action completes a request that has since been
// superseded by a newer one for the same key.
func IsStale(state *State, action actions.Action) bool {
	if state == nil || action.Seq == 0 {
		return false
	}
	key, start, ok := seqKey(action)
	if !ok || start {
		return false
	}
	return action.Seq < state.RequestSeq[key]
}

func seqKey(action actions.Action) (key string, start bool, ok bool) {
	switch action.Type {
	case actions.ThemesRequest, actions.ThemesRequestSuccess, actions.ThemesRequestFailure:
		return "query:" + SerializedQuery(action.Query, action.SiteID), action.Type == actions.ThemesRequest, true
	case actions.ThemeRequest, actions.ThemeRequestSuccess, actions.ThemeRequestFailure:
		return fmt.Sprintf("theme:%d:%s", action.SiteID, action.ThemeID), action.Type == actions.ThemeRequest, true
	case actions.ThemeDelete, actions.ThemeDeleteSuccess, actions.ThemeDeleteFailure:
		return fmt.Sprintf("delete:%d:%s", action.SiteID, action.ThemeID), action.Type == actions.ThemeDelete, true
	case actions.ThemeRestore, actions.ThemeRestoreSuccess, actions.ThemeRestoreFailure:
		return fmt.Sprintf("restore:%d:%s", action.SiteID, action.ThemeID), action.Type == actions.ThemeRestore, true
	case actions.ThemeActivate, actions.ThemeActivateSuccess, actions.ThemeActivateFailure:
		return fmt.Sprintf("activate:%d", action.SiteID), action.Type == actions.ThemeActivate, true
	}
	return "", false, false
}

func reduceRequestSeq(seqs map[string]uint64, action actions.Action) (map[string]uint64, bool) {
	if action.Seq == 0 {
		return seqs, false
	}
	key, start, ok := seqKey(action)
	if !ok || !start || seqs[key] >= action.Seq {
		return seqs, false
	}
	return with(seqs, key, action.Seq), true
}

func reduceItems(items map[string]qstate.Entity, action actions.Action) (map[string]qstate.Entity, bool) {
	switch action.Type {
	case actions.ThemesReceive, actions.ThemesRequestSuccess:
		return receiveItems(items, action.Themes)
	case actions.ThemeRequestSuccess:
		if action.Theme == nil {
			return items, false
		}
		return receiveItems(items, []qstate.Entity{withID(action.Theme, action.ThemeID)})
	case actions.ThemeSave:
		current, ok := items[action.ThemeID]
		if !ok || len(action.Theme) == 0 {
			return items, false
		}
		merged := qstate.Entity(layering.Merge(action.Theme, current))
		if layering.Equal(current, merged) {
			return items, false
		}
		return with(items, action.ThemeID, merged), true
	case actions.ThemeDeleteSuccess:
		if _, ok := items[action.ThemeID]; !ok {
			return items, false
		}
		return without(items, action.ThemeID), true
	}
	return items, false
}

func receiveItems(items map[string]qstate.Entity, themes []qstate.Entity) (map[string]qstate.Entity, bool) {
	var out map[string]qstate.Entity
	for _, theme := range themes {
		id, ok := themeID(theme)
		if !ok {
			continue
		}
		current, exists := items[id]
		if out != nil {
			current, exists = out[id]
		}
		if exists && layering.Equal(current, theme) {
			continue
		}
		if out == nil {
			out = clone(items)
		}
		out[id] = theme.Clone()
	}
	if out == nil {
		return items, false
	}
	return out, true
}

func reduceQueries(queries map[int64]*qstate.Manager, action actions.Action) (map[int64]*qstate.Manager, bool) {
	switch action.Type {
	case actions.ThemesRequestSuccess:
		return applyToManager(queries, action.SiteID, true, func(m *qstate.Manager) *qstate.Manager {
			return m.Receive(normalizeAll(m, action.Themes), qstate.WithQuery(action.Query), qstate.WithFound(action.Found))
		})
	case actions.ThemesReceive:
		return receiveBySite(queries, action.Themes)
	case actions.ThemeRequestSuccess:
		if action.Theme == nil || action.SiteID == 0 {
			return queries, false
		}
		theme := withID(action.Theme, action.ThemeID)
		return applyToManager(queries, action.SiteID, true, func(m *qstate.Manager) *qstate.Manager {
			return m.Receive(normalizeAll(m, []qstate.Entity{theme}))
		})
	case actions.ThemeSave:
		if len(action.Theme) == 0 {
			return queries, false
		}
		patch := NormalizeForState(action.Theme)
		patch[qstate.DefaultItemKey] = action.ThemeID
		return patchTheme(queries, action.SiteID, patch)
	case actions.ThemeDelete:
		return patchStatus(queries, action, StatusDeletePending)
	case actions.ThemeRestore:
		return patchStatus(queries, action, StatusRestorePending)
	case actions.ThemeDeleteFailure, actions.ThemeRestoreFailure:
		return patchStatus(queries, action, StatusTrash)
	case actions.ThemeRestoreSuccess:
		status := action.Theme.String("status")
		if status == "" || IsPending(status) {
			status = StatusPublish
		}
		return patchStatus(queries, action, status)
	case actions.ThemeDeleteSuccess:
		return applyToManager(queries, action.SiteID, false, func(m *qstate.Manager) *qstate.Manager {
			return m.RemoveItem(action.ThemeID)
		})
	}
	return queries, false
}

func receiveBySite(queries map[int64]*qstate.Manager, themes []qstate.Entity) (map[int64]*qstate.Manager, bool) {
	bySite := map[int64][]qstate.Entity{}
	for _, theme := range themes {
		siteID, ok := SiteOf(theme)
		if !ok {
			continue
		}
		bySite[siteID] = append(bySite[siteID], theme)
	}
	siteIDs := make([]int64, 0, len(bySite))
	for siteID := range bySite {
		siteIDs = append(siteIDs, siteID)
	}
	sort.Slice(siteIDs, func(i, j int) bool { return siteIDs[i] < siteIDs[j] })

	changed := false
	for _, siteID := range siteIDs {
		siteThemes := bySite[siteID]
		next, ok := applyToManager(queries, siteID, true, func(m *qstate.Manager) *qstate.Manager {
			return m.Receive(normalizeAll(m, siteThemes))
		})
		if ok {
			queries, changed = next, true
		}
	}
	return queries, changed
}

func patchStatus(queries map[int64]*qstate.Manager, action actions.Action, status string) (map[int64]*qstate.Manager, bool) {
	return patchTheme(queries, action.SiteID, qstate.Entity{
		qstate.DefaultItemKey: action.ThemeID,
		"status":              status,
	})
}

func patchTheme(queries map[int64]*qstate.Manager, siteID int64, patch qstate.Entity) (map[int64]*qstate.Manager, bool) {
	return applyToManager(queries, siteID, false, func(m *qstate.Manager) *qstate.Manager {
		return m.Receive([]qstate.Entity{patch}, qstate.AsPatch())
	})
}

// applyToManager runs fn against the manager of siteID. Without createDefault
// a missing manager leaves the map untouched.
func applyToManager(queries map[int64]*qstate.Manager, siteID int64, createDefault bool, fn func(*qstate.Manager) *qstate.Manager) (map[int64]*qstate.Manager, bool) {
	current, ok := queries[siteID]
	if !ok {
		if !createDefault {
			return queries, false
		}
		current = NewManager()
	}
	next := fn(current)
	if next == current {
		return queries, false
	}
	return with(queries, siteID, next), true
}

// normalizeAll prepares themes for a full receive, keeping any transient
// pending status already recorded by m so a late fetch cannot clobber an
// optimistic delete or restore.
func normalizeAll(m *qstate.Manager, themes []qstate.Entity) []qstate.Entity {
	out := make([]qstate.Entity, 0, len(themes))
	for _, theme := range themes {
		normalized := NormalizeForState(theme)
		if normalized == nil {
			continue
		}
		if id, ok := qstate.KeyOf(normalized, m.ItemKey()); ok {
			if current, ok := m.Item(id); ok {
				if status := current.String("status"); IsPending(status) {
					normalized["status"] = status
				}
			}
		}
		out = append(out, normalized)
	}
	return out
}

func reduceSiteRequests(requests map[int64]map[string]bool, action actions.Action) (map[int64]map[string]bool, bool) {
	switch action.Type {
	case actions.ThemeRequest, actions.ThemeRequestSuccess, actions.ThemeRequestFailure:
	default:
		return requests, false
	}
	requesting := action.Type == actions.ThemeRequest
	site := requests[action.SiteID]
	if current, ok := site[action.ThemeID]; ok && current == requesting {
		return requests, false
	}
	return with(requests, action.SiteID, with(site, action.ThemeID, requesting)), true
}

func reduceQueryRequests(requests map[string]bool, action actions.Action) (map[string]bool, bool) {
	switch action.Type {
	case actions.ThemesRequest, actions.ThemesRequestSuccess, actions.ThemesRequestFailure:
	default:
		return requests, false
	}
	key := SerializedQuery(action.Query, action.SiteID)
	requesting := action.Type == actions.ThemesRequest
	if current, ok := requests[key]; ok && current == requesting {
		return requests, false
	}
	return with(requests, key, requesting), true
}

func reduceActive(active map[int64]string, action actions.Action) (map[int64]string, bool) {
	if action.Type != actions.ThemeActivateSuccess || active[action.SiteID] == action.ThemeID {
		return active, false
	}
	return with(active, action.SiteID, action.ThemeID), true
}

func reduceActivating(activating map[int64]bool, action actions.Action) (map[int64]bool, bool) {
	switch action.Type {
	case actions.ThemeActivate, actions.ThemeActivateSuccess, actions.ThemeActivateFailure:
	default:
		return activating, false
	}
	requesting := action.Type == actions.ThemeActivate
	if current, ok := activating[action.SiteID]; ok && current == requesting {
		return activating, false
	}
	return with(activating, action.SiteID, requesting), true
}

func themeID(theme qstate.Entity) (string, bool) {
	if id, ok := qstate.KeyOf(theme, qstate.DefaultItemKey); ok {
		return id, true
	}
	return qstate.KeyOf(theme, "ID")
}

func withID(theme qstate.Entity, id string) qstate.Entity {
	out := theme.Clone()
	if _, ok := themeID(out); !ok && id != "" {
		out[qstate.DefaultItemKey] = id
	}
	return out
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func with[K comparable, V any](m map[K]V, key K, value V) map[K]V {
	out := clone(m)
	out[key] = value
	return out
}

func without[K comparable, V any](m map[K]V, key K) map[K]V {
	out := clone(m)
	delete(out, key)
	return out
}
