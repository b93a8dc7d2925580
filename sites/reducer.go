package sites

import (
	"reflect"
	"sort"

	"github.com/goliatone/go-query-state/actions"
)

// State is the site slice.
type State struct {
	Items         map[int64]Site
	Requesting    map[int64]bool
	RequestingAll bool
}

// NewState returns an empty site slice.
func NewState() *State {
	return &State{
		Items:      map[int64]Site{},
		Requesting: map[int64]bool{},
	}
}

// Site returns the stored site.
func (s *State) Site(id int64) (Site, bool) {
	if s == nil {
		return Site{}, false
	}
	site, ok := s.Items[id]
	return site, ok
}

// IDs returns the known site ids, sorted.
func (s *State) IDs() []int64 {
	if s == nil {
		return nil
	}
	ids := make([]int64, 0, len(s.Items))
	for id := range s.Items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Reduce returns the site slice after action, or state itself when nothing
// changed. Payloads that fail to decode are skipped.
func Reduce(state *State, action actions.Action) *State {
	if state == nil {
		state = NewState()
	}
	switch action.Type {
	case actions.Reset:
		if len(state.Items) == 0 && len(state.Requesting) == 0 && !state.RequestingAll {
			return state
		}
		return NewState()
	case actions.SitesReceive, actions.SitesRequestSuccess:
		next := receive(state, action.Sites)
		if action.Type == actions.SitesRequestSuccess {
			next = setRequestingAll(next, state, false)
		}
		return next
	case actions.SiteReceive:
		if action.Site == nil {
			return state
		}
		return receive(state, []map[string]any{action.Site})
	case actions.SitesRequest:
		return setRequestingAll(state, state, true)
	case actions.SitesRequestFailure:
		return setRequestingAll(state, state, false)
	case actions.SiteRequest, actions.SiteRequestSuccess, actions.SiteRequestFailure:
		next := state
		if action.Type == actions.SiteRequestSuccess && action.Site != nil {
			next = receive(state, []map[string]any{action.Site})
		}
		requesting := action.Type == actions.SiteRequest
		if current, ok := next.Requesting[action.SiteID]; ok && current == requesting {
			return next
		}
		out := copyState(next, state)
		out.Requesting = make(map[int64]bool, len(next.Requesting)+1)
		for id, flag := range next.Requesting {
			out.Requesting[id] = flag
		}
		out.Requesting[action.SiteID] = requesting
		return out
	}
	return state
}

func receive(state *State, payloads []map[string]any) *State {
	var items map[int64]Site
	for _, raw := range payloads {
		site, err := Decode(raw)
		if err != nil {
			continue
		}
		current, exists := state.Items[site.ID]
		if items != nil {
			current, exists = items[site.ID]
		}
		if exists && reflect.DeepEqual(current, site) {
			continue
		}
		if items == nil {
			items = make(map[int64]Site, len(state.Items)+len(payloads))
			for id, existing := range state.Items {
				items[id] = existing
			}
		}
		items[site.ID] = site
	}
	if items == nil {
		return state
	}
	next := *state
	next.Items = items
	return &next
}

func setRequestingAll(next, original *State, requesting bool) *State {
	if next.RequestingAll == requesting {
		return next
	}
	out := copyState(next, original)
	out.RequestingAll = requesting
	return out
}

// copyState returns a fresh copy of next unless next is already a copy made
// during this reduction.
func copyState(next, original *State) *State {
	if next != original {
		return next
	}
	out := *next
	return &out
}
