package store

import (
	"github.com/goliatone/go-query-state/actions"
	"github.com/goliatone/go-query-state/sites"
	"github.com/goliatone/go-query-state/themes"
)

const (
	// FeatureThemeDetails enables the dedicated theme details pages.
	FeatureThemeDetails = "manage/themes/details"
	// FeaturePreviewLayout enables live previews for eligible sites.
	FeaturePreviewLayout = "preview-layout"
	// FeatureCheckout enables theme purchases.
	FeatureCheckout = "upgrades/checkout"
)

// Features is the set of enabled feature flags.
type Features map[string]bool

// Enabled reports whether name is switched on. Unknown flags are off.
func (f Features) Enabled(name string) bool {
	return f[name]
}

// State is the full tree read by selectors.
type State struct {
	Sites    *sites.State
	Themes   *themes.State
	Features Features
}

// NewState returns an empty tree with features.
func NewState(features Features) *State {
	copied := make(Features, len(features))
	for name, enabled := range features {
		copied[name] = enabled
	}
	return &State{Sites: sites.NewState(), Themes: themes.NewState(), Features: copied}
}

// Reduce applies action to every slice. It returns state itself when no
// slice changed.
func Reduce(state *State, action actions.Action) *State {
	if state == nil {
		state = NewState(nil)
	}
	nextSites := sites.Reduce(state.Sites, action)
	nextThemes := themes.Reduce(state.Themes, action)
	if nextSites == state.Sites && nextThemes == state.Themes {
		return state
	}
	return &State{Sites: nextSites, Themes: nextThemes, Features: state.Features}
}

// withThemes returns a copy of state with the theme slice replaced.
func (s *State) withThemes(slice *themes.State) *State {
	return &State{Sites: s.Sites, Themes: slice, Features: s.Features}
}
