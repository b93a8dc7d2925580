package selectors

import (
	"sort"

	qstate "github.com/goliatone/go-query-state"
	"github.com/goliatone/go-query-state/store"
	"github.com/goliatone/go-query-state/themes"
)

func themeSlice(state *store.State) *themes.State {
	if state == nil {
		return nil
	}
	return state.Themes
}

// GetThemes returns every known theme ordered by id.
func GetThemes(state *store.State) []qstate.Entity {
	slice := themeSlice(state)
	if slice == nil || len(slice.Items) == 0 {
		return []qstate.Entity{}
	}
	ids := make([]string, 0, len(slice.Items))
	for id := range slice.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]qstate.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, slice.Items[id].Clone())
	}
	return out
}

// GetThemeByID returns a copy of the theme with id.
func GetThemeByID(state *store.State, id string) (qstate.Entity, bool) {
	return themeSlice(state).Theme(id)
}

// GetThemesForQuery returns the themes cached for query on siteID in result
// order. ok is false when the query was never received.
func GetThemesForQuery(state *store.State, siteID int64, query qstate.Descriptor) (list []qstate.Entity, ok bool) {
	return themeSlice(state).Manager(siteID).ItemsForQuery(query)
}

// GetThemesFoundForQuery returns the total match count reported for query.
func GetThemesFoundForQuery(state *store.State, siteID int64, query qstate.Descriptor) (found int, ok bool) {
	return themeSlice(state).Manager(siteID).Found(query)
}

// IsRequestingThemesForQuery reports whether query is being fetched for siteID.
func IsRequestingThemesForQuery(state *store.State, siteID int64, query qstate.Descriptor) bool {
	return themeSlice(state).IsRequestingQuery(siteID, query)
}

// IsRequestingTheme reports whether themeID is being fetched for siteID.
func IsRequestingTheme(state *store.State, siteID int64, themeID string) bool {
	return themeSlice(state).IsRequestingTheme(siteID, themeID)
}

// GetActiveTheme returns the id of the theme active on siteID, or "".
func GetActiveTheme(state *store.State, siteID int64) string {
	slice := themeSlice(state)
	if slice == nil {
		return ""
	}
	return slice.Active[siteID]
}

// IsThemeActive reports whether themeID is the active theme of siteID.
func IsThemeActive(state *store.State, themeID string, siteID int64) bool {
	return themeID != "" && GetActiveTheme(state, siteID) == themeID
}

// IsActivatingTheme reports whether an activation is in flight for siteID.
func IsActivatingTheme(state *store.State, siteID int64) bool {
	slice := themeSlice(state)
	return slice != nil && slice.Activating[siteID]
}

// IsThemePremium reports whether theme comes from the premium catalogue.
func IsThemePremium(theme qstate.Entity) bool {
	return theme != nil && themes.IsPremium(theme)
}

// IsDeletePending reports whether a delete of themeID on siteID awaits the
// server response.
func IsDeletePending(state *store.State, siteID int64, themeID string) bool {
	return themeStatus(state, siteID, themeID) == themes.StatusDeletePending
}

// IsRestorePending reports whether a restore of themeID on siteID awaits the
// server response.
func IsRestorePending(state *store.State, siteID int64, themeID string) bool {
	return themeStatus(state, siteID, themeID) == themes.StatusRestorePending
}

func themeStatus(state *store.State, siteID int64, themeID string) string {
	theme, ok := themeSlice(state).Manager(siteID).Item(themeID)
	if !ok {
		return ""
	}
	return theme.String("status")
}
