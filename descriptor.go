package qstate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Descriptor holds the filter, sort and page parameters of one query.
type Descriptor map[string]any

// Normalize drops nil values and values equal to their default so that
// descriptors that only differ by implied defaults describe the same query.
func (d Descriptor) Normalize(defaults Descriptor) Descriptor {
	out := make(Descriptor, len(d))
	for key, value := range d {
		if value == nil {
			continue
		}
		if fallback, ok := defaults[key]; ok && canonicalValue(fallback) == canonicalValue(value) {
			continue
		}
		out[key] = value
	}
	return out
}

// Key returns the canonical serialization of the normalized descriptor. Map
// keys are emitted in sorted order, so construction order never matters.
func (d Descriptor) Key(defaults Descriptor) string {
	normalized := d.Normalize(defaults)
	encoded, err := json.Marshal(map[string]any(normalized))
	if err != nil {
		return fallbackKey(normalized)
	}
	return string(encoded)
}

// ParseDescriptor reverses Key. Keys produced by the fallback encoding do not
// round-trip and yield an empty descriptor.
func ParseDescriptor(key string) Descriptor {
	var out Descriptor
	if err := json.Unmarshal([]byte(key), &out); err != nil || out == nil {
		return Descriptor{}
	}
	return out
}

// String returns the value of field when it is a string.
func (d Descriptor) String(field string) string {
	value, _ := d[field].(string)
	return value
}

func canonicalValue(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%#v", value)
	}
	return string(encoded)
}

func fallbackKey(d Descriptor) string {
	keys := make([]string, 0, len(d))
	for key := range d {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+canonicalValue(d[key]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
