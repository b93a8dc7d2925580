package themes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	qstate "github.com/goliatone/go-query-state"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	// ErrInvalidDocument reports a persisted document that is not valid JSON.
	ErrInvalidDocument = errors.New("themes: invalid persisted document")
	// ErrSchemaMismatch reports a persisted value rejected by its JSON schema.
	ErrSchemaMismatch = errors.New("themes: persisted state does not match schema")
	// ErrDanglingReference reports a query listing an id missing from its items.
	ErrDanglingReference = errors.New("themes: query references unknown item")
	// ErrInvalidScope reports a scope key that is not a site id.
	ErrInvalidScope = errors.New("themes: invalid scope key")
)

// Serialized is the durable form of the theme slice: the entity store and the
// per-site query managers, each as a JSON document.
type Serialized struct {
	Items   []byte
	Queries []byte
}

// DeserializeReport describes what Deserialize discarded.
type DeserializeReport struct {
	// ItemsErr is set when the entity store document was discarded.
	ItemsErr error
	// QueriesErr is set when the whole queries document was discarded.
	QueriesErr error
	// Restored lists the sites whose managers were restored, sorted.
	Restored []int64
	// Rejected maps discarded scope keys to the reason.
	Rejected map[string]error
}

// OK reports whether nothing was discarded.
func (r DeserializeReport) OK() bool {
	return r.ItemsErr == nil && r.QueriesErr == nil && len(r.Rejected) == 0
}

// RejectedScopes returns the discarded scope keys, sorted.
func (r DeserializeReport) RejectedScopes() []string {
	keys := make([]string, 0, len(r.Rejected))
	for key := range r.Rejected {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Err joins every discard reason, or returns nil.
func (r DeserializeReport) Err() error {
	var errs []error
	if r.ItemsErr != nil {
		errs = append(errs, r.ItemsErr)
	}
	if r.QueriesErr != nil {
		errs = append(errs, r.QueriesErr)
	}
	for _, key := range r.RejectedScopes() {
		errs = append(errs, fmt.Errorf("scope %s: %w", key, r.Rejected[key]))
	}
	return errors.Join(errs...)
}

// Serialize encodes the durable portion of state. Request flags and active
// theme tracking are not persisted, and transient pending statuses are written
// back as trash.
func Serialize(state *State) (Serialized, error) {
	if state == nil {
		state = NewState()
	}
	items := make(map[string]qstate.Entity, len(state.Items))
	for id, theme := range state.Items {
		items[id] = stabilize(theme.Clone())
	}

	queries := make(map[string]qstate.Snapshot, len(state.Queries))
	for siteID, manager := range state.Queries {
		snapshot := manager.Export()
		for id, theme := range snapshot.Data.Items {
			snapshot.Data.Items[id] = stabilize(theme)
		}
		queries[strconv.FormatInt(siteID, 10)] = snapshot
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return Serialized{}, fmt.Errorf("themes: encode items: %w", err)
	}
	queriesJSON, err := json.Marshal(queries)
	if err != nil {
		return Serialized{}, fmt.Errorf("themes: encode queries: %w", err)
	}
	return Serialized{Items: itemsJSON, Queries: queriesJSON}, nil
}

// Deserialize rebuilds the theme slice from serialized. Each site scope is
// checked against the queries schema and for dangling query references;
// scopes that fail are dropped and reported rather than partially loaded.
// Request flags always start empty.
func Deserialize(serialized Serialized) (*State, DeserializeReport) {
	state := NewState()
	report := DeserializeReport{Rejected: map[string]error{}}

	itemsSchema, scopeSchema, err := compiledSchemas()
	if err != nil {
		report.ItemsErr = err
		report.QueriesErr = err
		return state, report
	}

	if len(bytes.TrimSpace(serialized.Items)) > 0 {
		items, err := decodeItems(serialized.Items, itemsSchema)
		if err != nil {
			report.ItemsErr = err
		} else {
			state.Items = items
		}
	}

	if len(bytes.TrimSpace(serialized.Queries)) == 0 {
		return state, report
	}
	var scopes map[string]json.RawMessage
	if err := json.Unmarshal(serialized.Queries, &scopes); err != nil {
		report.QueriesErr = fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		return state, report
	}
	for key, raw := range scopes {
		siteID, err := strconv.ParseInt(key, 10, 64)
		if err != nil || siteID == 0 {
			report.Rejected[key] = ErrInvalidScope
			continue
		}
		snapshot, err := decodeScope(raw, scopeSchema)
		if err != nil {
			report.Rejected[key] = err
			continue
		}
		state.Queries[siteID] = qstate.FromSnapshot(snapshot, ManagerOptions()...)
		report.Restored = append(report.Restored, siteID)
	}
	sort.Slice(report.Restored, func(i, j int) bool { return report.Restored[i] < report.Restored[j] })
	return state, report
}

func decodeItems(raw []byte, schema *jsonschema.Schema) (map[string]qstate.Entity, error) {
	if err := validate(raw, schema); err != nil {
		return nil, err
	}
	var items map[string]qstate.Entity
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if items == nil {
		items = map[string]qstate.Entity{}
	}
	return items, nil
}

func decodeScope(raw []byte, schema *jsonschema.Schema) (qstate.Snapshot, error) {
	if err := validate(raw, schema); err != nil {
		return qstate.Snapshot{}, err
	}
	var snapshot qstate.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return qstate.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if missing := snapshot.MissingReferences(); len(missing) > 0 {
		return qstate.Snapshot{}, fmt.Errorf("%w: %v", ErrDanglingReference, missing)
	}
	return snapshot, nil
}

func validate(raw []byte, schema *jsonschema.Schema) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

func stabilize(theme qstate.Entity) qstate.Entity {
	if theme != nil && IsPending(theme.String("status")) {
		theme["status"] = StatusTrash
	}
	return theme
}
