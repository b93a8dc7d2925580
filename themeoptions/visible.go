package themeoptions

import (
	"fmt"

	qstate "github.com/goliatone/go-query-state"
	"github.com/goliatone/go-query-state/rules"
	"github.com/goliatone/go-query-state/selectors"
	"github.com/goliatone/go-query-state/store"
	"github.com/goliatone/go-query-state/themes"
)

// Functions returns the helpers available to option rules: flag from the
// standard set and premium(theme).
func Functions() *rules.FunctionRegistry {
	registry := rules.StandardFunctions()
	_ = registry.Register("premium", 1, func(args ...any) (any, error) {
		theme, ok := rules.Facts(args, 0)
		if !ok {
			return false, nil
		}
		return themes.IsPremium(qstate.Entity(theme)), nil
	})
	return registry
}

// NewEvaluator builds the rule evaluator for engine with the option helpers
// registered and compiled rules cached.
func NewEvaluator(engine string, opts ...rules.Option) (rules.Evaluator, error) {
	opts = append([]rules.Option{
		rules.WithFunctionRegistry(Functions()),
		rules.WithProgramCache(rules.NewMemoryCache()),
	}, opts...)
	return rules.New(engine, opts...)
}

// ThemeFacts returns the rule bindings of theme on siteID. The active flag
// is derived from the state tree.
func ThemeFacts(state *store.State, theme qstate.Entity, siteID int64) map[string]any {
	facts := map[string]any(theme.Clone())
	if facts == nil {
		facts = map[string]any{}
	}
	if selectors.IsThemeActive(state, theme.String("id"), siteID) {
		facts["active"] = true
	}
	return facts
}

// SiteFacts returns the rule bindings of siteID.
func SiteFacts(state *store.State, siteID int64) map[string]any {
	facts := map[string]any{"isCustomizable": false, "isJetpack": false}
	if site, ok := selectors.GetSite(state, siteID); ok {
		facts["isCustomizable"] = site.IsCustomizable
		facts["isJetpack"] = site.Jetpack
	}
	return facts
}

// Hidden reports whether option is hidden for theme on site.
func Hidden(evaluator rules.Evaluator, option Option, theme, site map[string]any) (bool, error) {
	ctx := rules.Context{Theme: theme, Site: site}
	for _, rule := range []string{option.HideForSite, option.HideForTheme} {
		if rule == "" {
			continue
		}
		hide, err := rules.Bool(evaluator, ctx, rule)
		if err != nil {
			return false, fmt.Errorf("themeoptions: %s: %w", option.Name, err)
		}
		if hide {
			return true, nil
		}
	}
	return false, nil
}

// Visible returns the options of site not hidden for theme, in table order.
// It stops at the first rule that fails to evaluate.
func Visible(evaluator rules.Evaluator, options []SiteOption, theme, site map[string]any) ([]SiteOption, error) {
	out := make([]SiteOption, 0, len(options))
	for _, option := range options {
		hidden, err := Hidden(evaluator, option.Option, theme, site)
		if err != nil {
			return nil, err
		}
		if !hidden {
			out = append(out, option)
		}
	}
	return out, nil
}
