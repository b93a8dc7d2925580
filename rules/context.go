// Package rules evaluates the small predicate expressions attached to theme
// options, such as "theme.active || !site.isCustomizable".
//
// Three engines are available: expr (default), CEL, and JavaScript through
// goja when built with the js_eval tag. Every engine sees the same bindings:
// theme, site, args and now.
package rules

import "time"

// Context carries the inputs of one rule evaluation.
type Context struct {
	Theme map[string]any
	Site  map[string]any
	Args  map[string]any
	Now   *time.Time
}

func (ctx Context) withDefaults() Context {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Theme == nil {
		ctx.Theme = map[string]any{}
	}
	if ctx.Site == nil {
		ctx.Site = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

// label identifies the evaluated theme in errors and logs.
func (ctx Context) label() string {
	if id, ok := ctx.Theme["id"].(string); ok && id != "" {
		return "theme:" + id
	}
	return "unknown"
}

func (ctx Context) bindings() map[string]any {
	ctx = ctx.withDefaults()
	return map[string]any{
		"theme": ctx.Theme,
		"site":  ctx.Site,
		"args":  ctx.Args,
		"now":   *ctx.Now,
	}
}
