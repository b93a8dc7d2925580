package qstate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-query-state/layering"
)

// DefaultItemKey is the field used to identify entities when a manager is not
// configured otherwise.
const DefaultItemKey = "id"

// Entity is a record received from the network, keyed by field name.
type Entity map[string]any

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	return layering.Clone(e)
}

// String returns field as a string, or "" when missing or not a scalar.
func (e Entity) String(field string) string {
	if e == nil {
		return ""
	}
	switch value := e[field].(type) {
	case string:
		return value
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int, int32, int64, uint, uint32, uint64, bool:
		return fmt.Sprint(value)
	default:
		return ""
	}
}

// Bool reports whether field holds a truthy value: true, a non-empty string
// or a non-zero number.
func (e Entity) Bool(field string) bool {
	if e == nil {
		return false
	}
	return Truthy(e[field])
}

// Truthy applies loose truthiness to a JSON-shaped value.
func Truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case float64:
		return typed != 0
	case float32:
		return typed != 0
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case int32:
		return typed != 0
	case uint:
		return typed != 0
	case uint64:
		return typed != 0
	default:
		return true
	}
}

// KeyOf extracts the identifier stored under itemKey. Numeric identifiers are
// rendered without exponent so 5 and 5.0 produce the same key.
func KeyOf(e Entity, itemKey string) (string, bool) {
	if e == nil {
		return "", false
	}
	if itemKey == "" {
		itemKey = DefaultItemKey
	}
	switch value := e[itemKey].(type) {
	case string:
		value = strings.TrimSpace(value)
		return value, value != ""
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case int:
		return strconv.Itoa(value), true
	case int64:
		return strconv.FormatInt(value, 10), true
	case int32:
		return strconv.FormatInt(int64(value), 10), true
	case uint64:
		return strconv.FormatUint(value, 10), true
	default:
		return "", false
	}
}
