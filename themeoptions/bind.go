package themeoptions

import (
	"context"
	"errors"

	qstate "github.com/goliatone/go-query-state"
	"github.com/goliatone/go-query-state/store"
)

// ErrNoRunner reports an action invoked before BindToDispatch.
var ErrNoRunner = errors.New("themeoptions: option is not bound to a runner")

// Bound is an option resolved against a state tree. Link is nil for options
// without a URL and Do is nil for options without an action.
type Bound struct {
	Option
	Link func(theme qstate.Entity, siteID int64) string
	Do   func(ctx context.Context, theme qstate.Entity, siteID int64) error
}

// BindToState resolves the URL builders of options against state.
func BindToState(options Options, state *store.State) []Bound {
	out := make([]Bound, 0, len(options))
	for _, option := range options {
		bound := Bound{Option: option}
		if option.URL != nil {
			build := option.URL
			bound.Link = func(theme qstate.Entity, siteID int64) string {
				return build(state, theme, siteID)
			}
		}
		if option.Action != nil {
			bound.Do = func(context.Context, qstate.Entity, int64) error { return ErrNoRunner }
		}
		out = append(out, bound)
	}
	return out
}

// BindToDispatch attaches runner to the option actions. Actions run with
// source recorded on the dispatched actions.
func BindToDispatch(bound []Bound, runner Runner, source string) []Bound {
	out := make([]Bound, 0, len(bound))
	for _, option := range bound {
		if option.Action != nil && runner != nil {
			action := option.Action
			option.Do = func(ctx context.Context, theme qstate.Entity, siteID int64) error {
				if source != "" {
					ctx = store.ContextWithSource(ctx, source)
				}
				return action(ctx, runner, theme, siteID)
			}
		}
		out = append(out, option)
	}
	return out
}

// SiteOption is an option fixed to one site.
type SiteOption struct {
	Option
	SiteID int64
	Link   func(theme qstate.Entity) string
	Do     func(ctx context.Context, theme qstate.Entity) error
}

// BindToSite fixes the target site of bound options.
func BindToSite(bound []Bound, siteID int64) []SiteOption {
	out := make([]SiteOption, 0, len(bound))
	for _, option := range bound {
		site := SiteOption{Option: option.Option, SiteID: siteID}
		if link := option.Link; link != nil {
			site.Link = func(theme qstate.Entity) string { return link(theme, siteID) }
		}
		if do := option.Do; do != nil {
			site.Do = func(ctx context.Context, theme qstate.Entity) error { return do(ctx, theme, siteID) }
		}
		out = append(out, site)
	}
	return out
}
