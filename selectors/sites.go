// Package selectors reads derived values from a state tree. Every selector is
// a pure function of the tree and its arguments: unknown sites or themes yield
// zero values rather than errors.
package selectors

import (
	"sort"
	"strings"

	"github.com/goliatone/go-query-state/internal/urlx"
	"github.com/goliatone/go-query-state/sites"
	"github.com/goliatone/go-query-state/store"
)

// Site is a site record with its computed attributes.
type Site struct {
	sites.Site
	Title          string `json:"title"`
	Domain         string `json:"domain"`
	Slug           string `json:"slug"`
	HasConflict    bool   `json:"hasConflict"`
	IsCustomizable bool   `json:"is_customizable"`
	IsPreviewable  bool   `json:"is_previewable"`
}

func rawSite(state *store.State, siteID int64) (sites.Site, bool) {
	if state == nil || siteID == 0 {
		return sites.Site{}, false
	}
	return state.Sites.Site(siteID)
}

// GetSite returns the normalized site. The options map is copied and
// default_post_format defaults to "standard".
func GetSite(state *store.State, siteID int64) (Site, bool) {
	site, ok := rawSite(state, siteID)
	if !ok {
		return Site{}, false
	}
	options := make(map[string]any, len(site.Options)+1)
	for key, value := range site.Options {
		options[key] = value
	}
	if _, ok := options["default_post_format"]; !ok {
		options["default_post_format"] = "standard"
	}
	site.Options = options

	return Site{
		Site:           site,
		Title:          GetSiteTitle(state, siteID),
		Domain:         GetSiteDomain(state, siteID),
		Slug:           GetSiteSlug(state, siteID),
		HasConflict:    IsSiteConflicting(state, siteID),
		IsCustomizable: site.Can("edit_theme_options"),
		IsPreviewable:  IsSitePreviewable(state, siteID),
	}, true
}

// GetSiteCollisions returns the ids of WordPress.com sites whose URL, ignoring
// the protocol, is also used by a Jetpack site.
func GetSiteCollisions(state *store.State) []int64 {
	if state == nil || state.Sites == nil {
		return []int64{}
	}
	jetpackURLs := map[string]bool{}
	for _, site := range state.Sites.Items {
		if site.Jetpack {
			jetpackURLs[urlx.WithoutHTTP(site.URL)] = true
		}
	}
	collisions := []int64{}
	for id, site := range state.Sites.Items {
		if !site.Jetpack && jetpackURLs[urlx.WithoutHTTP(site.URL)] {
			collisions = append(collisions, id)
		}
	}
	sort.Slice(collisions, func(i, j int) bool { return collisions[i] < collisions[j] })
	return collisions
}

// IsSiteConflicting reports whether siteID shares its URL with a Jetpack site.
func IsSiteConflicting(state *store.State, siteID int64) bool {
	for _, id := range GetSiteCollisions(state) {
		if id == siteID {
			return true
		}
	}
	return false
}

// IsJetpackSite reports whether siteID is a self-hosted Jetpack site.
func IsJetpackSite(state *store.State, siteID int64) bool {
	site, ok := rawSite(state, siteID)
	return ok && site.Jetpack
}

// IsSingleUserSite reports the single_user_site attribute. ok is false when
// the site or the attribute is unknown.
func IsSingleUserSite(state *store.State, siteID int64) (single bool, ok bool) {
	site, known := rawSite(state, siteID)
	if !known || site.SingleUserSite == nil {
		return false, false
	}
	return *site.SingleUserSite, true
}

// GetSiteSlug returns the slug used in site scoped paths. Redirect and
// conflicting sites use the hostname of their unmapped URL.
func GetSiteSlug(state *store.State, siteID int64) string {
	site, ok := rawSite(state, siteID)
	if !ok {
		return ""
	}
	if site.Option("is_redirect") == true || IsSiteConflicting(state, siteID) {
		return urlx.Hostname(site.OptionString("unmapped_url"))
	}
	return urlx.ToSlug(site.URL)
}

// GetSiteDomain returns the domain shown for siteID, or "".
func GetSiteDomain(state *store.State, siteID int64) string {
	site, ok := rawSite(state, siteID)
	if !ok {
		return ""
	}
	if site.Option("is_redirect") == true || IsSiteConflicting(state, siteID) {
		return GetSiteSlug(state, siteID)
	}
	return urlx.WithoutHTTP(site.URL)
}

// GetSiteTitle returns the trimmed site name, falling back to its domain.
func GetSiteTitle(state *store.State, siteID int64) string {
	site, ok := rawSite(state, siteID)
	if !ok {
		return ""
	}
	if name := strings.TrimSpace(site.Name); name != "" {
		return name
	}
	return GetSiteDomain(state, siteID)
}

// GetSiteOption returns the named site option, or nil.
func GetSiteOption(state *store.State, siteID int64, name string) any {
	site, ok := rawSite(state, siteID)
	if !ok {
		return nil
	}
	return site.Option(name)
}

// IsSitePreviewable reports whether the site can be shown in a live preview:
// the preview layout must be enabled and the site must not be VIP and must
// serve its unmapped URL over https.
func IsSitePreviewable(state *store.State, siteID int64) bool {
	if state == nil || !state.Features.Enabled(store.FeaturePreviewLayout) {
		return false
	}
	site, ok := rawSite(state, siteID)
	if !ok || site.IsVIP {
		return false
	}
	return urlx.IsHTTPS(site.OptionString("unmapped_url"))
}

// IsRequestingSites reports whether the site list is being fetched.
func IsRequestingSites(state *store.State) bool {
	return state != nil && state.Sites != nil && state.Sites.RequestingAll
}

// IsRequestingSite reports whether siteID is being fetched.
func IsRequestingSite(state *store.State, siteID int64) bool {
	return state != nil && state.Sites != nil && state.Sites.Requesting[siteID]
}

// GetSiteByURL returns the site whose slug matches the slug of rawURL.
func GetSiteByURL(state *store.State, rawURL string) (sites.Site, bool) {
	if state == nil || state.Sites == nil {
		return sites.Site{}, false
	}
	slug := urlx.ToSlug(rawURL)
	if slug == "" {
		return sites.Site{}, false
	}
	for _, id := range state.Sites.IDs() {
		if GetSiteSlug(state, id) == slug {
			return state.Sites.Items[id], true
		}
	}
	return sites.Site{}, false
}

// GetSiteThemeShowcasePath returns the showcase path of the theme currently
// installed on a WordPress.com site. Jetpack sites and themes outside the
// pub and premium catalogues have none.
func GetSiteThemeShowcasePath(state *store.State, siteID int64) string {
	site, ok := rawSite(state, siteID)
	if !ok || site.Jetpack {
		return ""
	}
	catalogue, name, found := strings.Cut(site.OptionString("theme_slug"), "/")
	if !found || name == "" {
		return ""
	}
	slug := GetSiteSlug(state, siteID)
	switch catalogue {
	case "pub":
		return "/theme/" + name + "/" + slug
	case "premium":
		return "/theme/" + name + "/setup/" + slug
	}
	return ""
}
