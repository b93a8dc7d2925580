package qstate

import (
	"strconv"

	"github.com/goliatone/go-query-state/layering"
)

// QueryResult is the ordered page of item keys returned for one query and the
// total number of matches reported by the server.
type QueryResult struct {
	ItemKeys []string `json:"itemKeys"`
	Found    int      `json:"found"`
}

func (r QueryResult) clone() QueryResult {
	return QueryResult{
		ItemKeys: append([]string(nil), r.ItemKeys...),
		Found:    r.Found,
	}
}

func (r QueryResult) indexOf(key string) int {
	for i, candidate := range r.ItemKeys {
		if candidate == key {
			return i
		}
	}
	return -1
}

func (r QueryResult) equal(other QueryResult) bool {
	if r.Found != other.Found || len(r.ItemKeys) != len(other.ItemKeys) {
		return false
	}
	for i := range r.ItemKeys {
		if r.ItemKeys[i] != other.ItemKeys[i] {
			return false
		}
	}
	return true
}

// Manager caches entities for one scope together with the results of the
// queries that produced them. A Manager is immutable: state-changing calls
// return a new Manager and leave the receiver untouched, no-ops return the
// receiver itself so callers can detect change by pointer comparison.
type Manager struct {
	items   map[string]Entity
	queries map[string]QueryResult
	cfg     managerConfig
}

// NewManager constructs an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	return &Manager{
		items:   map[string]Entity{},
		queries: map[string]QueryResult{},
		cfg:     applyManagerOptions(opts),
	}
}

// ItemKey returns the field used to identify entities.
func (m *Manager) ItemKey() string {
	if m == nil {
		return DefaultItemKey
	}
	return m.cfg.itemKey
}

// QueryKey returns the canonical cache key for query.
func (m *Manager) QueryKey(query Descriptor) string {
	if m == nil {
		return query.Key(nil)
	}
	return query.Key(m.cfg.defaultQuery)
}

// Receive stores entities and, when a query is supplied, replaces the result
// for that query with their keys in the given order.
//
// Patch receives merge the supplied fields into the stored records instead of
// replacing them and never touch query results. Patching an unknown key stores
// the patch itself as a sparse placeholder.
func (m *Manager) Receive(entities []Entity, opts ...ReceiveOption) *Manager {
	if m == nil {
		m = NewManager()
	}
	cfg := applyReceiveOptions(opts)

	next := m.mutable()
	keys := make([]string, 0, len(entities))
	var changed []string
	for _, entity := range entities {
		key, ok := KeyOf(entity, m.cfg.itemKey)
		if !ok {
			continue
		}
		keys = append(keys, key)

		current, exists := next.lookup(key)
		var revised Entity
		switch {
		case cfg.patch && exists:
			revised = Entity(layering.Merge(entity, current))
		default:
			revised = entity.Clone()
		}
		if exists && layering.Equal(current, revised) {
			continue
		}
		next.setItem(key, revised)
		changed = append(changed, key)
	}

	switch {
	case cfg.patch:
	case cfg.hasQuery:
		found := len(keys)
		if cfg.hasFound {
			found = cfg.found
		}
		next.setQuery(m.QueryKey(cfg.query), QueryResult{ItemKeys: keys, Found: found})
	case m.cfg.matcher != nil && len(changed) > 0:
		next.applyMatcher(changed)
	}

	return next.build()
}

// RemoveItem drops the entity with key and prunes it from every stored query,
// decrementing their found counts.
func (m *Manager) RemoveItem(key string) *Manager {
	if m == nil {
		return nil
	}
	next := m.mutable()
	if _, ok := m.items[key]; ok {
		next.deleteItem(key)
	}
	for _, queryKey := range m.queryKeys() {
		result := m.queries[queryKey]
		idx := result.indexOf(key)
		if idx < 0 {
			continue
		}
		revised := QueryResult{
			ItemKeys: append(append([]string(nil), result.ItemKeys[:idx]...), result.ItemKeys[idx+1:]...),
			Found:    decrement(result.Found),
		}
		next.setQuery(queryKey, revised)
	}
	return next.build()
}

// Item returns a copy of the entity stored under key.
func (m *Manager) Item(key string) (Entity, bool) {
	if m == nil {
		return nil, false
	}
	item, ok := m.items[key]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// Items returns copies of all stored entities ordered by key.
func (m *Manager) Items() []Entity {
	if m == nil || len(m.items) == 0 {
		return nil
	}
	keys := sortedKeys(m.items)
	out := make([]Entity, 0, len(keys))
	for _, key := range keys {
		out = append(out, m.items[key].Clone())
	}
	return out
}

// Len returns the number of stored entities.
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// HasQuery reports whether a result is cached for query.
func (m *Manager) HasQuery(query Descriptor) bool {
	if m == nil {
		return false
	}
	_, ok := m.queries[m.QueryKey(query)]
	return ok
}

// KeysForQuery returns the ordered item keys cached for query.
func (m *Manager) KeysForQuery(query Descriptor) ([]string, bool) {
	if m == nil {
		return nil, false
	}
	result, ok := m.queries[m.QueryKey(query)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), result.ItemKeys...), true
}

// ItemsForQuery returns copies of the entities cached for query, in result
// order.
func (m *Manager) ItemsForQuery(query Descriptor) ([]Entity, bool) {
	keys, ok := m.KeysForQuery(query)
	if !ok {
		return nil, false
	}
	out := make([]Entity, 0, len(keys))
	for _, key := range keys {
		if item, ok := m.items[key]; ok {
			out = append(out, item.Clone())
		}
	}
	return out, true
}

// Found returns the total number of matches reported for query.
func (m *Manager) Found(query Descriptor) (int, bool) {
	if m == nil {
		return 0, false
	}
	result, ok := m.queries[m.QueryKey(query)]
	if !ok {
		return 0, false
	}
	return result.Found, true
}

// QueryKeys returns the canonical keys of all cached queries, sorted.
func (m *Manager) QueryKeys() []string {
	if m == nil {
		return nil
	}
	return m.queryKeys()
}

func (m *Manager) queryKeys() []string {
	return sortedKeys(m.queries)
}

// draft accumulates copy-on-write changes against a base manager.
type draft struct {
	base    *Manager
	items   map[string]Entity
	queries map[string]QueryResult
}

func (m *Manager) mutable() *draft {
	return &draft{base: m}
}

func (d *draft) lookup(key string) (Entity, bool) {
	if d.items != nil {
		item, ok := d.items[key]
		return item, ok
	}
	item, ok := d.base.items[key]
	return item, ok
}

func (d *draft) ensureItems() {
	if d.items != nil {
		return
	}
	d.items = make(map[string]Entity, len(d.base.items)+1)
	for key, item := range d.base.items {
		d.items[key] = item
	}
}

func (d *draft) ensureQueries() {
	if d.queries != nil {
		return
	}
	d.queries = make(map[string]QueryResult, len(d.base.queries)+1)
	for key, result := range d.base.queries {
		d.queries[key] = result
	}
}

func (d *draft) setItem(key string, item Entity) {
	d.ensureItems()
	d.items[key] = item
}

func (d *draft) deleteItem(key string) {
	d.ensureItems()
	delete(d.items, key)
}

func (d *draft) currentQueries() map[string]QueryResult {
	if d.queries != nil {
		return d.queries
	}
	return d.base.queries
}

func (d *draft) setQuery(key string, result QueryResult) {
	if existing, ok := d.currentQueries()[key]; ok && existing.equal(result) {
		return
	}
	d.ensureQueries()
	d.queries[key] = result
}

// applyMatcher keeps stored query results consistent with entities received
// outside of a query: a changed entity joins the queries it now matches and
// leaves the ones it no longer matches. Pages of one paginated query are
// updated as a group.
func (d *draft) applyMatcher(changed []string) {
	matcher := d.base.cfg.matcher
	for _, group := range d.base.pageGroups() {
		query := ParseDescriptor(group[0].key)
		results := make([]QueryResult, len(group))
		for i, page := range group {
			results[i] = d.currentQueries()[page.key].clone()
		}
		for _, key := range changed {
			item, ok := d.lookup(key)
			if !ok {
				continue
			}
			member := false
			for _, result := range results {
				if result.indexOf(key) >= 0 {
					member = true
					break
				}
			}
			matches := matcher(query, item)
			switch {
			case matches && !member:
				for i, page := range group {
					results[i].Found++
					if page.number <= 1 && (page.size <= 0 || len(results[i].ItemKeys) < page.size) {
						results[i].ItemKeys = append(results[i].ItemKeys, key)
					}
				}
			case !matches && member:
				for i := range results {
					if idx := results[i].indexOf(key); idx >= 0 {
						results[i].ItemKeys = append(results[i].ItemKeys[:idx], results[i].ItemKeys[idx+1:]...)
					}
					results[i].Found = decrement(results[i].Found)
				}
			}
		}
		for i, page := range group {
			d.setQuery(page.key, results[i])
		}
	}
}

type storedPage struct {
	key    string
	number int
	size   int
}

// pageGroups buckets stored query keys by their descriptor without the
// pagination fields. Without pagination every query is its own group.
func (m *Manager) pageGroups() [][]storedPage {
	var (
		order  []string
		groups = map[string][]storedPage{}
	)
	for _, queryKey := range m.queryKeys() {
		page := storedPage{key: queryKey}
		groupKey := queryKey
		if m.cfg.pageField != "" {
			query := ParseDescriptor(queryKey)
			page.number = intField(query, m.cfg.defaultQuery, m.cfg.pageField, 1)
			page.size = intField(query, m.cfg.defaultQuery, m.cfg.sizeField, 0)
			delete(query, m.cfg.pageField)
			delete(query, m.cfg.sizeField)
			groupKey = query.Key(m.cfg.defaultQuery)
		}
		if _, ok := groups[groupKey]; !ok {
			order = append(order, groupKey)
		}
		groups[groupKey] = append(groups[groupKey], page)
	}
	out := make([][]storedPage, 0, len(order))
	for _, groupKey := range order {
		out = append(out, groups[groupKey])
	}
	return out
}

// intField reads a numeric descriptor field, falling back to the default
// query and then to fallback.
func intField(query, defaults Descriptor, field string, fallback int) int {
	if field == "" {
		return fallback
	}
	for _, source := range []Descriptor{query, defaults} {
		switch value := source[field].(type) {
		case int:
			return value
		case int64:
			return int(value)
		case float64:
			return int(value)
		case string:
			if n, err := strconv.Atoi(value); err == nil {
				return n
			}
		}
	}
	return fallback
}

func (d *draft) build() *Manager {
	if d.items == nil && d.queries == nil {
		return d.base
	}
	next := &Manager{
		items:   d.base.items,
		queries: d.base.queries,
		cfg:     d.base.cfg,
	}
	if d.items != nil {
		next.items = d.items
	}
	if d.queries != nil {
		next.queries = d.queries
	}
	return next
}

func decrement(found int) int {
	if found <= 0 {
		return 0
	}
	return found - 1
}
