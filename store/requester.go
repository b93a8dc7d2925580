package store

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	qstate "github.com/goliatone/go-query-state"
	"github.com/goliatone/go-query-state/actions"
	"github.com/goliatone/go-query-state/themes"
)

// ThemesPage is one page of query results.
type ThemesPage struct {
	Themes []qstate.Entity
	Found  int
}

// ThemesAPI is the network collaborator. Implementations perform the actual
// HTTP calls; the requester only sequences actions around them.
type ThemesAPI interface {
	FetchThemes(ctx context.Context, siteID int64, query qstate.Descriptor) (ThemesPage, error)
	FetchTheme(ctx context.Context, siteID int64, themeID string) (qstate.Entity, error)
	SaveTheme(ctx context.Context, siteID int64, themeID string, fields qstate.Entity) (qstate.Entity, error)
	DeleteTheme(ctx context.Context, siteID int64, themeID string) error
	RestoreTheme(ctx context.Context, siteID int64, themeID string) (qstate.Entity, error)
	ActivateTheme(ctx context.Context, siteID int64, themeID string) (qstate.Entity, error)
	FetchSites(ctx context.Context) ([]map[string]any, error)
	FetchSite(ctx context.Context, siteID int64) (map[string]any, error)
}

// Requester runs ThemesAPI calls bracketed by request/success/failure
// actions. Concurrent identical fetches share one call, and every request
// carries a fresh Seq so late completions of superseded requests are
// ignored by the reducers.
type Requester struct {
	store  *Store
	api    ThemesAPI
	group  singleflight.Group
	seq    atomic.Uint64
	source string
}

// RequesterOption configures a Requester.
type RequesterOption func(*Requester)

// WithSource tags dispatched actions with source, e.g. "showcase".
func WithSource(source string) RequesterOption {
	return func(r *Requester) { r.source = source }
}

// NewRequester returns a requester dispatching into store and fetching through api.
func NewRequester(store *Store, api ThemesAPI, opts ...RequesterOption) *Requester {
	r := &Requester{store: store, api: api}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Requester) next() uint64 { return r.seq.Add(1) }

type sourceKey struct{}

// ContextWithSource tags actions dispatched under ctx with source, overriding
// the requester default.
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	source, _ := ctx.Value(sourceKey{}).(string)
	return source
}

func (r *Requester) dispatch(ctx context.Context, action actions.Action) {
	if action.Source == "" {
		action.Source = sourceFrom(ctx)
	}
	if action.Source == "" {
		action.Source = r.source
	}
	r.store.DispatchContext(ctx, action)
}

// RequestThemes fetches one page of query for siteID.
func (r *Requester) RequestThemes(ctx context.Context, siteID int64, query qstate.Descriptor) (ThemesPage, error) {
	key := "query:" + themes.SerializedQuery(query, siteID)
	value, err, shared := r.group.Do(key, func() (any, error) {
		seq := r.next()
		r.dispatch(ctx, actions.RequestThemes(siteID, query, seq))
		done := r.store.metrics.trackRequest("themes")
		page, err := r.api.FetchThemes(ctx, siteID, query)
		done(err)
		if err != nil {
			r.dispatch(ctx, actions.RequestThemesFailure(siteID, query, err, seq))
			return ThemesPage{}, err
		}
		r.dispatch(ctx, actions.RequestThemesSuccess(siteID, query, page.Themes, page.Found, seq))
		return page, nil
	})
	if shared {
		r.store.logger.Debug("collapsed duplicate query request", zap.String("key", key))
	}
	if err != nil {
		return ThemesPage{}, err
	}
	return value.(ThemesPage), nil
}

// RequestTheme fetches a single theme.
func (r *Requester) RequestTheme(ctx context.Context, siteID int64, themeID string) (qstate.Entity, error) {
	key := fmt.Sprintf("theme:%d:%s", siteID, themeID)
	value, err, _ := r.group.Do(key, func() (any, error) {
		seq := r.next()
		r.dispatch(ctx, actions.RequestTheme(siteID, themeID, seq))
		done := r.store.metrics.trackRequest("theme")
		theme, err := r.api.FetchTheme(ctx, siteID, themeID)
		done(err)
		if err != nil {
			r.dispatch(ctx, actions.RequestThemeFailure(siteID, themeID, err, seq))
			return qstate.Entity(nil), err
		}
		r.dispatch(ctx, actions.RequestThemeSuccess(siteID, themeID, theme, seq))
		return theme, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(qstate.Entity), nil
}

// SaveTheme applies fields optimistically, then confirms them with the
// server response or reverts the touched fields on failure.
func (r *Requester) SaveTheme(ctx context.Context, siteID int64, themeID string, fields qstate.Entity) (qstate.Entity, error) {
	previous := qstate.Entity{}
	if manager := r.store.State().Themes.Manager(siteID); manager != nil {
		if current, ok := manager.Item(themeID); ok {
			for key := range fields {
				previous[key] = current[key]
			}
		}
	}
	r.dispatch(ctx, actions.SaveTheme(siteID, themeID, fields))

	done := r.store.metrics.trackRequest("save")
	saved, err := r.api.SaveTheme(ctx, siteID, themeID, fields)
	done(err)
	if err != nil {
		if len(previous) > 0 {
			r.dispatch(ctx, actions.SaveTheme(siteID, themeID, previous))
		}
		return nil, err
	}
	if len(saved) > 0 {
		r.dispatch(ctx, actions.SaveTheme(siteID, themeID, saved))
	}
	return saved, nil
}

// DeleteTheme marks the theme pending, deletes it and removes it on success.
// A failure reverts the status to trash.
func (r *Requester) DeleteTheme(ctx context.Context, siteID int64, themeID string) error {
	seq := r.next()
	r.dispatch(ctx, actions.Lifecycle(actions.ThemeDelete, siteID, themeID, seq))
	done := r.store.metrics.trackRequest("delete")
	err := r.api.DeleteTheme(ctx, siteID, themeID)
	done(err)
	if err != nil {
		failure := actions.Lifecycle(actions.ThemeDeleteFailure, siteID, themeID, seq)
		failure.Err = err
		r.dispatch(ctx, failure)
		return err
	}
	r.dispatch(ctx, actions.Lifecycle(actions.ThemeDeleteSuccess, siteID, themeID, seq))
	return nil
}

// RestoreTheme takes a trashed theme out of the trash.
func (r *Requester) RestoreTheme(ctx context.Context, siteID int64, themeID string) (qstate.Entity, error) {
	seq := r.next()
	r.dispatch(ctx, actions.Lifecycle(actions.ThemeRestore, siteID, themeID, seq))
	done := r.store.metrics.trackRequest("restore")
	theme, err := r.api.RestoreTheme(ctx, siteID, themeID)
	done(err)
	if err != nil {
		failure := actions.Lifecycle(actions.ThemeRestoreFailure, siteID, themeID, seq)
		failure.Err = err
		r.dispatch(ctx, failure)
		return nil, err
	}
	success := actions.Lifecycle(actions.ThemeRestoreSuccess, siteID, themeID, seq)
	success.Theme = theme
	r.dispatch(ctx, success)
	return theme, nil
}

// ActivateTheme switches the active theme of siteID.
func (r *Requester) ActivateTheme(ctx context.Context, siteID int64, themeID string) (qstate.Entity, error) {
	seq := r.next()
	r.dispatch(ctx, actions.Lifecycle(actions.ThemeActivate, siteID, themeID, seq))
	done := r.store.metrics.trackRequest("activate")
	theme, err := r.api.ActivateTheme(ctx, siteID, themeID)
	done(err)
	if err != nil {
		failure := actions.Lifecycle(actions.ThemeActivateFailure, siteID, themeID, seq)
		failure.Err = err
		r.dispatch(ctx, failure)
		return nil, err
	}
	success := actions.Lifecycle(actions.ThemeActivateSuccess, siteID, themeID, seq)
	success.Theme = theme
	r.dispatch(ctx, success)
	return theme, nil
}

// RequestSites fetches every site visible to the user.
func (r *Requester) RequestSites(ctx context.Context) error {
	_, err, _ := r.group.Do("sites", func() (any, error) {
		r.dispatch(ctx, actions.Action{Type: actions.SitesRequest})
		done := r.store.metrics.trackRequest("sites")
		payloads, err := r.api.FetchSites(ctx)
		done(err)
		if err != nil {
			r.dispatch(ctx, actions.Action{Type: actions.SitesRequestFailure, Err: err})
			return nil, err
		}
		r.dispatch(ctx, actions.Action{Type: actions.SitesRequestSuccess, Sites: payloads})
		return nil, nil
	})
	return err
}

// RequestSite fetches one site.
func (r *Requester) RequestSite(ctx context.Context, siteID int64) error {
	_, err, _ := r.group.Do("site:"+strconv.FormatInt(siteID, 10), func() (any, error) {
		r.dispatch(ctx, actions.Action{Type: actions.SiteRequest, SiteID: siteID})
		done := r.store.metrics.trackRequest("site")
		payload, err := r.api.FetchSite(ctx, siteID)
		done(err)
		if err != nil {
			r.dispatch(ctx, actions.Action{Type: actions.SiteRequestFailure, SiteID: siteID, Err: err})
			return nil, err
		}
		r.dispatch(ctx, actions.Action{Type: actions.SiteRequestSuccess, SiteID: siteID, Site: payload})
		return nil, nil
	})
	return err
}
