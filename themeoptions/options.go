// Package themeoptions describes the actions offered next to a theme in a
// showcase: purchase, activate, customize and so on. Each option carries an
// optional URL builder, an optional action, and rule expressions that hide it
// for a given theme or site.
//
// Options are bound in stages. BindToState resolves URL builders against a
// state tree, BindToDispatch attaches the requester that runs actions, and
// BindToSite fixes the target site. Visible then drops the options whose
// rules hide them.
package themeoptions

import (
	"context"

	qstate "github.com/goliatone/go-query-state"
	"github.com/goliatone/go-query-state/selectors"
	"github.com/goliatone/go-query-state/store"
)

// Option names.
const (
	Purchase        = "purchase"
	Activate        = "activate"
	Customize       = "customize"
	TryAndCustomize = "tryandcustomize"
	Preview         = "preview"
	Signup          = "signup"
	Separator       = "separator"
	Info            = "info"
	Support         = "support"
	Help            = "help"
)

// URLFunc builds the link of an option from the state tree.
type URLFunc func(state *store.State, theme qstate.Entity, siteID int64) string

// ActionFunc runs an option against runner.
type ActionFunc func(ctx context.Context, runner Runner, theme qstate.Entity, siteID int64) error

// Runner executes option actions. *store.Requester implements it.
type Runner interface {
	ActivateTheme(ctx context.Context, siteID int64, themeID string) (qstate.Entity, error)
}

// Option is one entry of the option table. HideForTheme and HideForSite are
// rule expressions; an empty rule never hides.
type Option struct {
	Name         string
	Label        string
	Header       string
	Icon         string
	Separator    bool
	URL          URLFunc
	Action       ActionFunc
	HideForTheme string
	HideForSite  string
}

// Options is an ordered option table.
type Options []Option

// Get returns the option called name.
func (o Options) Get(name string) (Option, bool) {
	for _, option := range o {
		if option.Name == name {
			return option, true
		}
	}
	return Option{}, false
}

// Names lists the option names in table order.
func (o Options) Names() []string {
	names := make([]string, 0, len(o))
	for _, option := range o {
		names = append(names, option.Name)
	}
	return names
}

// Pick returns the options called names, in the order given. Unknown names
// are skipped.
func (o Options) Pick(names ...string) Options {
	out := make(Options, 0, len(names))
	for _, name := range names {
		if option, ok := o.Get(name); ok {
			out = append(out, option)
		}
	}
	return out
}

func signupURL(_ *store.State, theme qstate.Entity, _ int64) string {
	return selectors.GetThemeSignupURL(theme)
}

func activate(ctx context.Context, runner Runner, theme qstate.Entity, siteID int64) error {
	_, err := runner.ActivateTheme(ctx, siteID, theme.String("id"))
	return err
}

// Table returns the full option table. Purchase is only offered when the
// checkout feature is enabled.
func Table(features store.Features) Options {
	options := Options{}
	if features.Enabled(store.FeatureCheckout) {
		options = append(options, Option{
			Name:         Purchase,
			Label:        "Purchase",
			Header:       "Purchase on:",
			URL:          selectors.GetThemePurchaseURL,
			HideForTheme: `!flag(theme, "price") || flag(theme, "active") || flag(theme, "purchased")`,
		})
	}
	return append(options,
		Option{
			Name:         Activate,
			Label:        "Activate",
			Header:       "Activate on:",
			Action:       activate,
			HideForTheme: `flag(theme, "active") || (flag(theme, "price") && !flag(theme, "purchased"))`,
		},
		Option{
			Name:         Customize,
			Label:        "Customize",
			Header:       "Customize on:",
			Icon:         "customize",
			URL:          selectors.GetThemeCustomizeURL,
			HideForSite:  `!flag(site, "isCustomizable")`,
			HideForTheme: `!flag(theme, "active")`,
		},
		Option{
			Name:         TryAndCustomize,
			Label:        "Try & Customize",
			Header:       "Try & Customize on:",
			URL:          selectors.GetThemeCustomizeURL,
			HideForSite:  `!flag(site, "isCustomizable")`,
			HideForTheme: `flag(theme, "active")`,
		},
		// Preview has no URL or action of its own; the showcase opens the
		// demo site itself.
		Option{
			Name:         Preview,
			Label:        "Live demo",
			HideForSite:  `flag(site, "isJetpack")`,
			HideForTheme: `flag(theme, "active")`,
		},
		Option{
			Name:  Signup,
			Label: "Pick this design",
			URL:   signupURL,
		},
		Option{
			Name:      Separator,
			Separator: true,
		},
		Option{
			Name:  Info,
			Label: "Info",
			Icon:  "info",
			URL:   selectors.GetThemeDetailsURL,
		},
		Option{
			Name:         Support,
			Label:        "Setup",
			Icon:         "help",
			URL:          selectors.GetThemeSupportURL,
			HideForSite:  `flag(site, "isJetpack")`,
			HideForTheme: `!premium(theme)`,
		},
		Option{
			Name:        Help,
			Label:       "Support",
			URL:         selectors.GetThemeHelpURL,
			HideForSite: `flag(site, "isJetpack")`,
		},
	)
}
