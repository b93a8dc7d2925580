package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	qstate "github.com/goliatone/go-query-state"
)

// Function is a helper callable from rule expressions.
type Function func(args ...any) (any, error)

// Variadic registers a helper that accepts any number of arguments.
const Variadic = -1

var (
	// ErrUnknownFunction is returned when a rule calls an unregistered helper.
	ErrUnknownFunction = errors.New("rules: unknown function")
	// ErrArity is returned when a helper is called with the wrong number of
	// arguments.
	ErrArity = errors.New("rules: wrong number of arguments")
)

type helper struct {
	name  string
	arity int
	fn    Function
}

// FunctionRegistry holds the helpers exposed to rule expressions, keyed by
// lower case name. Arity is checked before a helper runs so engines that pass
// arguments untyped (expr, goja) report the same error as CEL.
type FunctionRegistry struct {
	mu      sync.RWMutex
	helpers map[string]helper
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{helpers: make(map[string]helper)}
}

// Register stores fn under name. arity is the exact argument count, or
// Variadic. Duplicate names are rejected.
func (r *FunctionRegistry) Register(name string, arity int, fn Function) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return fmt.Errorf("rules: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("rules: function %q is nil", name)
	case arity < Variadic:
		return fmt.Errorf("rules: function %q has invalid arity %d", name, arity)
	}

	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.helpers == nil {
		r.helpers = make(map[string]helper)
	}
	if _, exists := r.helpers[key]; exists {
		return fmt.Errorf("rules: function %q already registered", name)
	}
	r.helpers[key] = helper{name: key, arity: arity, fn: fn}
	return nil
}

// Clone returns a registry with the same helpers that can be extended
// without affecting r.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{helpers: make(map[string]helper, len(r.helpers))}
	for key, h := range r.helpers {
		clone.helpers[key] = h
	}
	return clone
}

// Call runs the helper registered for name after checking its arity.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s (no registry)", ErrUnknownFunction, name)
	}
	r.mu.RLock()
	h, ok := r.helpers[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if h.arity != Variadic && len(args) != h.arity {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrArity, h.name, h.arity, len(args))
	}
	return h.fn(args...)
}

// Arity reports the argument count registered for name.
func (r *FunctionRegistry) Arity(name string) (int, bool) {
	if r == nil {
		return 0, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.helpers[strings.ToLower(name)]
	return h.arity, ok
}

// Names returns the registered names, sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.helpers))
	for key := range r.helpers {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// Facts returns args[i] as a fact map. Theme and site facts arrive as
// map[string]any or qstate.Entity depending on the engine; anything else,
// including nil, yields false.
func Facts(args []any, i int) (map[string]any, bool) {
	if i < 0 || i >= len(args) {
		return nil, false
	}
	switch facts := args[i].(type) {
	case map[string]any:
		return facts, facts != nil
	case qstate.Entity:
		return facts, facts != nil
	}
	return nil, false
}
