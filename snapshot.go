package qstate

import "sort"

// Snapshot is the durable form of a Manager.
type Snapshot struct {
	Data    SnapshotData    `json:"data"`
	Options SnapshotOptions `json:"options"`
}

// SnapshotData carries the backing item set and the query index.
type SnapshotData struct {
	Items   map[string]Entity      `json:"items"`
	Queries map[string]QueryResult `json:"queries"`
}

// SnapshotOptions records the manager settings needed to rebuild it.
type SnapshotOptions struct {
	ItemKey string `json:"itemKey"`
}

// Export returns a detached copy of the manager state.
func (m *Manager) Export() Snapshot {
	out := Snapshot{
		Data: SnapshotData{
			Items:   map[string]Entity{},
			Queries: map[string]QueryResult{},
		},
		Options: SnapshotOptions{ItemKey: m.ItemKey()},
	}
	if m == nil {
		return out
	}
	for key, item := range m.items {
		out.Data.Items[key] = item.Clone()
	}
	for key, result := range m.queries {
		out.Data.Queries[key] = result.clone()
	}
	return out
}

// FromSnapshot rebuilds a manager from snapshot. The item key recorded in the
// snapshot wins over WithItemKey. Query results keep their ids as stored;
// callers validate references before trusting a snapshot.
func FromSnapshot(snapshot Snapshot, opts ...ManagerOption) *Manager {
	m := NewManager(opts...)
	if snapshot.Options.ItemKey != "" {
		m.cfg.itemKey = snapshot.Options.ItemKey
	}
	for key, item := range snapshot.Data.Items {
		m.items[key] = item.Clone()
	}
	for key, result := range snapshot.Data.Queries {
		m.queries[key] = result.clone()
	}
	return m
}

// MissingReferences returns query keys whose results list ids absent from the
// item set, sorted.
func (s Snapshot) MissingReferences() []string {
	var missing []string
	for _, key := range sortedKeys(s.Data.Queries) {
		for _, id := range s.Data.Queries[key].ItemKeys {
			if _, ok := s.Data.Items[id]; !ok {
				missing = append(missing, key)
				break
			}
		}
	}
	return missing
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
