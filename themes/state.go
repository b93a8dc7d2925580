// Package themes holds the theme slice of the state tree: the entity store,
// request flags, per-site query managers and active themes.
package themes

import (
	"sort"

	qstate "github.com/goliatone/go-query-state"
)

// State is the theme slice. A State is never mutated after it is returned by
// Reduce; reducers build a new one when anything changes.
type State struct {
	// Items is the entity store of every theme received, keyed by id.
	Items map[string]qstate.Entity
	// SiteRequests tracks single theme fetches per site and theme id.
	SiteRequests map[int64]map[string]bool
	// QueryRequests tracks query fetches by SerializedQuery.
	QueryRequests map[string]bool
	// Queries holds one manager per site.
	Queries map[int64]*qstate.Manager
	// Active maps a site to its active theme id.
	Active map[int64]string
	// Activating tracks in-flight activations per site.
	Activating map[int64]bool
	// RequestSeq remembers the newest request sequence started per key.
	RequestSeq map[string]uint64
}

// NewState returns an empty theme slice.
func NewState() *State {
	return &State{
		Items:         map[string]qstate.Entity{},
		SiteRequests:  map[int64]map[string]bool{},
		QueryRequests: map[string]bool{},
		Queries:       map[int64]*qstate.Manager{},
		Active:        map[int64]string{},
		Activating:    map[int64]bool{},
		RequestSeq:    map[string]uint64{},
	}
}

// Theme returns the stored record for id.
func (s *State) Theme(id string) (qstate.Entity, bool) {
	if s == nil {
		return nil, false
	}
	theme, ok := s.Items[id]
	if !ok {
		return nil, false
	}
	return theme.Clone(), true
}

// Manager returns the query manager of siteID, or nil.
func (s *State) Manager(siteID int64) *qstate.Manager {
	if s == nil {
		return nil
	}
	return s.Queries[siteID]
}

// IsRequestingQuery reports whether a fetch of query on siteID is in flight.
func (s *State) IsRequestingQuery(siteID int64, query qstate.Descriptor) bool {
	if s == nil {
		return false
	}
	return s.QueryRequests[SerializedQuery(query, siteID)]
}

// IsRequestingTheme reports whether a fetch of themeID on siteID is in flight.
func (s *State) IsRequestingTheme(siteID int64, themeID string) bool {
	if s == nil {
		return false
	}
	return s.SiteRequests[siteID][themeID]
}

// SiteIDs returns the sites with a query manager, sorted.
func (s *State) SiteIDs() []int64 {
	if s == nil {
		return nil
	}
	ids := make([]int64, 0, len(s.Queries))
	for id := range s.Queries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *State) isEmpty() bool {
	return len(s.Items) == 0 && len(s.SiteRequests) == 0 && len(s.QueryRequests) == 0 &&
		len(s.Queries) == 0 && len(s.Active) == 0 && len(s.Activating) == 0 && len(s.RequestSeq) == 0
}
