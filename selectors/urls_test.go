package selectors_test

import (
	"testing"

	qstate "github.com/goliatone/go-query-state"
	"github.com/goliatone/go-query-state/actions"
	"github.com/goliatone/go-query-state/selectors"
	"github.com/goliatone/go-query-state/store"
)

const (
	wpcomSite   int64 = 2916284
	jetpackSite int64 = 77203074
)

func urlState(details bool) *store.State {
	return stateWith(store.Features{store.FeatureThemeDetails: details}, actions.ReceiveSites(
		map[string]any{"ID": wpcomSite, "URL": "https://example.wordpress.com"},
		map[string]any{
			"ID": jetpackSite, "URL": "https://example.net", "jetpack": true,
			"options": map[string]any{"admin_url": "https://example.net/wp-admin/"},
		},
	))
}

func TestThemeURLs(t *testing.T) {
	state := urlState(true)
	cases := []struct {
		name   string
		fn     func(*store.State, qstate.Entity, int64) string
		theme  qstate.Entity
		siteID int64
		want   string
	}{
		{name: "details", fn: selectors.GetThemeDetailsURL, theme: twentysixteen(), want: "/theme/twentysixteen"},
		{name: "details wpcom", fn: selectors.GetThemeDetailsURL, theme: twentysixteen(), siteID: wpcomSite, want: "/theme/twentysixteen/example.wordpress.com"},
		{name: "details jetpack", fn: selectors.GetThemeDetailsURL, theme: twentysixteen(), siteID: jetpackSite, want: "https://example.net/wp-admin/themes.php?theme=twentysixteen"},
		{name: "details nil theme", fn: selectors.GetThemeDetailsURL, siteID: wpcomSite},

		{name: "support free", fn: selectors.GetThemeSupportURL, theme: twentysixteen(), siteID: wpcomSite},
		{name: "support premium", fn: selectors.GetThemeSupportURL, theme: mood(), want: "/theme/mood/setup"},
		{name: "support premium wpcom", fn: selectors.GetThemeSupportURL, theme: mood(), siteID: wpcomSite, want: "/theme/mood/setup/example.wordpress.com"},

		{name: "help", fn: selectors.GetThemeHelpURL, theme: mood(), want: "/theme/mood/support"},
		{name: "help wpcom", fn: selectors.GetThemeHelpURL, theme: mood(), siteID: wpcomSite, want: "/theme/mood/support/example.wordpress.com"},
		{name: "help jetpack", fn: selectors.GetThemeHelpURL, theme: twentysixteen(), siteID: jetpackSite, want: "//wordpress.org/support/theme/twentysixteen"},

		{name: "purchase free", fn: selectors.GetThemePurchaseURL, theme: twentysixteen(), siteID: wpcomSite},
		{name: "purchase premium", fn: selectors.GetThemePurchaseURL, theme: mood(), siteID: wpcomSite, want: "/checkout/example.wordpress.com/theme:mood"},
		{name: "purchase unknown site", fn: selectors.GetThemePurchaseURL, theme: mood(), siteID: 1},

		{name: "customize no site", fn: selectors.GetThemeCustomizeURL, theme: twentysixteen(), want: "/customize/"},
		{name: "customize wpcom", fn: selectors.GetThemeCustomizeURL, theme: twentysixteen(), siteID: wpcomSite, want: "/customize/example.wordpress.com?theme=pub/twentysixteen"},
		{name: "customize wpcom no theme", fn: selectors.GetThemeCustomizeURL, siteID: wpcomSite, want: "/customize/example.wordpress.com"},
		{
			name: "customize jetpack", fn: selectors.GetThemeCustomizeURL, theme: twentysixteen(), siteID: jetpackSite,
			want: "https://example.net/wp-admin/customize.php?return=https%3A%2F%2Fexample.net%2Fwp-admin%2Fthemes.php&theme=twentysixteen",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.fn(state, tc.theme, tc.siteID); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestThemeURLsWithoutDetailsPages(t *testing.T) {
	state := urlState(false)
	if got := selectors.GetThemeDetailsURL(state, twentysixteen(), wpcomSite); got != "//wordpress.com/themes/twentysixteen/example.wordpress.com" {
		t.Fatalf("unexpected details url %q", got)
	}
	if got := selectors.GetThemeHelpURL(state, mood(), 0); got != "//wordpress.com/themes/mood" {
		t.Fatalf("unexpected help url %q", got)
	}
	if got := selectors.GetThemeSupportURL(state, mood(), wpcomSite); got != "//wordpress.com/themes/example.wordpress.com/mood/support" {
		t.Fatalf("unexpected support url %q", got)
	}
	if got := selectors.GetThemeSupportURL(state, mood(), 0); got != "//wordpress.com/themes/mood/support" {
		t.Fatalf("unexpected support url %q", got)
	}
}

func TestThemeSignupURL(t *testing.T) {
	if got := selectors.GetThemeSignupURL(twentysixteen()); got != "/start/with-theme?ref=calypshowcase&theme=twentysixteen" {
		t.Fatalf("unexpected signup url %q", got)
	}
	if got := selectors.GetThemeSignupURL(mood()); got != "/start/with-theme?ref=calypshowcase&theme=mood&premium=true" {
		t.Fatalf("unexpected premium signup url %q", got)
	}
	if got := selectors.GetThemeSignupURL(nil); got != "" {
		t.Fatalf("expected no url for a missing theme, got %q", got)
	}
}
