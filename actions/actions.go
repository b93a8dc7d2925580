// Package actions defines the action payloads dispatched to the state tree.
package actions

import (
	"fmt"

	qstate "github.com/goliatone/go-query-state"
)

// Type names an action.
type Type string

const (
	ThemesReceive        Type = "THEMES_RECEIVE"
	ThemesRequest        Type = "THEMES_REQUEST"
	ThemesRequestSuccess Type = "THEMES_REQUEST_SUCCESS"
	ThemesRequestFailure Type = "THEMES_REQUEST_FAILURE"

	ThemeRequest        Type = "THEME_REQUEST"
	ThemeRequestSuccess Type = "THEME_REQUEST_SUCCESS"
	ThemeRequestFailure Type = "THEME_REQUEST_FAILURE"

	ThemeSave Type = "THEME_SAVE"

	ThemeDelete        Type = "THEME_DELETE"
	ThemeDeleteSuccess Type = "THEME_DELETE_SUCCESS"
	ThemeDeleteFailure Type = "THEME_DELETE_FAILURE"

	ThemeRestore        Type = "THEME_RESTORE"
	ThemeRestoreSuccess Type = "THEME_RESTORE_SUCCESS"
	ThemeRestoreFailure Type = "THEME_RESTORE_FAILURE"

	ThemeActivate        Type = "THEME_ACTIVATE"
	ThemeActivateSuccess Type = "THEME_ACTIVATE_SUCCESS"
	ThemeActivateFailure Type = "THEME_ACTIVATE_FAILURE"

	SitesReceive        Type = "SITES_RECEIVE"
	SitesRequest        Type = "SITES_REQUEST"
	SitesRequestSuccess Type = "SITES_REQUEST_SUCCESS"
	SitesRequestFailure Type = "SITES_REQUEST_FAILURE"

	SiteReceive        Type = "SITE_RECEIVE"
	SiteRequest        Type = "SITE_REQUEST"
	SiteRequestSuccess Type = "SITE_REQUEST_SUCCESS"
	SiteRequestFailure Type = "SITE_REQUEST_FAILURE"

	// Reset clears the whole tree, for example on logout.
	Reset Type = "RESET"
	// Deserialize announces a tree rebuilt from persisted snapshots. Reducers
	// ignore it; subscribers receive it after a restore.
	Deserialize Type = "DESERIALIZE"
)

// Action is the payload carried through the reducers. Only the fields
// relevant to Type are populated.
type Action struct {
	Type    Type
	SiteID  int64
	Query   qstate.Descriptor
	Themes  []qstate.Entity
	Found   int
	ThemeID string
	Theme   qstate.Entity
	Sites   []map[string]any
	Site    map[string]any
	Source  string
	// Seq orders requests for the same key. Zero means unordered.
	Seq uint64
	Err error
}

func (a Action) String() string {
	switch {
	case a.ThemeID != "":
		return fmt.Sprintf("%s site=%d theme=%s", a.Type, a.SiteID, a.ThemeID)
	case a.SiteID != 0:
		return fmt.Sprintf("%s site=%d", a.Type, a.SiteID)
	default:
		return string(a.Type)
	}
}

// IsFailure reports whether the action closes a request with an error.
func (a Action) IsFailure() bool {
	switch a.Type {
	case ThemesRequestFailure, ThemeRequestFailure, ThemeDeleteFailure,
		ThemeRestoreFailure, ThemeActivateFailure, SitesRequestFailure, SiteRequestFailure:
		return true
	}
	return false
}

// ReceiveThemes builds a THEMES_RECEIVE action. Themes are partitioned by
// their site_ID field.
func ReceiveThemes(themes ...qstate.Entity) Action {
	return Action{Type: ThemesReceive, Themes: themes}
}

// RequestThemes marks the start of a query fetch.
func RequestThemes(siteID int64, query qstate.Descriptor, seq uint64) Action {
	return Action{Type: ThemesRequest, SiteID: siteID, Query: query, Seq: seq}
}

// RequestThemesSuccess delivers the result page of a query.
func RequestThemesSuccess(siteID int64, query qstate.Descriptor, themes []qstate.Entity, found int, seq uint64) Action {
	return Action{Type: ThemesRequestSuccess, SiteID: siteID, Query: query, Themes: themes, Found: found, Seq: seq}
}

// RequestThemesFailure closes a query fetch with err.
func RequestThemesFailure(siteID int64, query qstate.Descriptor, err error, seq uint64) Action {
	return Action{Type: ThemesRequestFailure, SiteID: siteID, Query: query, Err: err, Seq: seq}
}

// RequestTheme marks the start of a single theme fetch.
func RequestTheme(siteID int64, themeID string, seq uint64) Action {
	return Action{Type: ThemeRequest, SiteID: siteID, ThemeID: themeID, Seq: seq}
}

// RequestThemeSuccess delivers a single theme.
func RequestThemeSuccess(siteID int64, themeID string, theme qstate.Entity, seq uint64) Action {
	return Action{Type: ThemeRequestSuccess, SiteID: siteID, ThemeID: themeID, Theme: theme, Seq: seq}
}

// RequestThemeFailure closes a single theme fetch with err.
func RequestThemeFailure(siteID int64, themeID string, err error, seq uint64) Action {
	return Action{Type: ThemeRequestFailure, SiteID: siteID, ThemeID: themeID, Err: err, Seq: seq}
}

// SaveTheme applies a local edit to a theme.
func SaveTheme(siteID int64, themeID string, fields qstate.Entity) Action {
	return Action{Type: ThemeSave, SiteID: siteID, ThemeID: themeID, Theme: fields}
}

// Lifecycle builds one of the delete, restore or activate actions.
func Lifecycle(t Type, siteID int64, themeID string, seq uint64) Action {
	return Action{Type: t, SiteID: siteID, ThemeID: themeID, Seq: seq}
}

// ReceiveSites stores raw site payloads.
func ReceiveSites(sites ...map[string]any) Action {
	return Action{Type: SitesReceive, Sites: sites}
}

// ReceiveSite stores one raw site payload.
func ReceiveSite(site map[string]any) Action {
	return Action{Type: SiteReceive, Site: site}
}
