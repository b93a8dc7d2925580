package selectors

import (
	"net/url"

	qstate "github.com/goliatone/go-query-state"
	"github.com/goliatone/go-query-state/store"
)

// OldShowcaseURL is the legacy showcase used while theme details pages are
// disabled.
const OldShowcaseURL = "//wordpress.com/themes/"

func detailsEnabled(state *store.State) bool {
	return state != nil && state.Features.Enabled(store.FeatureThemeDetails)
}

func sitePart(state *store.State, siteID int64) string {
	if siteID == 0 {
		return ""
	}
	if slug := GetSiteSlug(state, siteID); slug != "" {
		return "/" + slug
	}
	return ""
}

// GetThemeDetailsURL returns the details page of theme. Jetpack sites link to
// their own wp-admin.
func GetThemeDetailsURL(state *store.State, theme qstate.Entity, siteID int64) string {
	id := theme.String("id")
	if id == "" {
		return ""
	}
	if IsJetpackSite(state, siteID) {
		return adminURL(state, siteID) + "themes.php?theme=" + id
	}
	base := OldShowcaseURL + id
	if detailsEnabled(state) {
		base = "/theme/" + id
	}
	return base + sitePart(state, siteID)
}

// GetThemeSupportURL returns the setup page of a premium theme, or "" for
// free themes.
func GetThemeSupportURL(state *store.State, theme qstate.Entity, siteID int64) string {
	id := theme.String("id")
	if id == "" || !IsThemePremium(theme) {
		return ""
	}
	part := sitePart(state, siteID)
	if detailsEnabled(state) {
		return "/theme/" + id + "/setup" + part
	}
	if part != "" {
		return OldShowcaseURL + part[1:] + "/" + id + "/support"
	}
	return OldShowcaseURL + id + "/support"
}

// GetThemeHelpURL returns the support forum of theme.
func GetThemeHelpURL(state *store.State, theme qstate.Entity, siteID int64) string {
	id := theme.String("id")
	if id == "" {
		return ""
	}
	if IsJetpackSite(state, siteID) {
		return "//wordpress.org/support/theme/" + id
	}
	base := OldShowcaseURL + id
	if detailsEnabled(state) {
		base = "/theme/" + id + "/support"
	}
	return base + sitePart(state, siteID)
}

// GetThemePurchaseURL returns the checkout path of a premium theme for
// siteID. Free themes and unknown sites have none.
func GetThemePurchaseURL(state *store.State, theme qstate.Entity, siteID int64) string {
	id := theme.String("id")
	if id == "" || !IsThemePremium(theme) {
		return ""
	}
	slug := GetSiteSlug(state, siteID)
	if slug == "" {
		return ""
	}
	return "/checkout/" + slug + "/theme:" + id
}

// GetThemeCustomizeURL returns the customizer of siteID, preloaded with theme
// when given. Jetpack sites return to their themes screen when done.
func GetThemeCustomizeURL(state *store.State, theme qstate.Entity, siteID int64) string {
	if siteID == 0 {
		return "/customize/"
	}
	if IsJetpackSite(state, siteID) {
		admin := adminURL(state, siteID)
		customize := admin + "customize.php?return=" + url.QueryEscape(admin+"themes.php")
		if id := theme.String("id"); id != "" {
			customize += "&theme=" + id
		}
		return customize
	}
	customize := "/customize/" + GetSiteSlug(state, siteID)
	if stylesheet := theme.String("stylesheet"); stylesheet != "" {
		customize += "?theme=" + stylesheet
	}
	return customize
}

// GetThemeSignupURL returns the signup flow preselecting theme.
func GetThemeSignupURL(theme qstate.Entity) string {
	id := theme.String("id")
	if id == "" {
		return ""
	}
	signup := "/start/with-theme?ref=calypshowcase&theme=" + id
	if IsThemePremium(theme) {
		signup += "&premium=true"
	}
	return signup
}

func adminURL(state *store.State, siteID int64) string {
	value, _ := GetSiteOption(state, siteID, "admin_url").(string)
	return value
}
