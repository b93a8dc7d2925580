package rules

import (
	"fmt"
	"strings"
	"time"

	qstate "github.com/goliatone/go-query-state"
)

// Engine names accepted by New.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Engine() string
	Evaluate(ctx Context, expr string) (any, error)
	Compile(expr string) (Rule, error)
}

// Rule is a compiled, reusable expression.
type Rule interface {
	Evaluate(ctx Context) (any, error)
}

// Option configures an evaluator.
type Option func(*config)

type config struct {
	cache    ProgramCache
	registry *FunctionRegistry
	logger   Logger
}

// WithProgramCache reuses compiled programs across evaluations.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes the registry's functions to expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// WithLogger records every evaluation.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

func applyOptions(opts []Option) config {
	cfg := config{logger: noopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// New builds the evaluator for engine. An empty engine selects expr.
func New(engine string, opts ...Option) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		evaluator := NewJSEvaluator(opts...)
		if evaluator == nil {
			return nil, fmt.Errorf("%w: %s", ErrEngineUnavailable, engine)
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// Bool evaluates expr and applies loose truthiness to the result.
func Bool(e Evaluator, ctx Context, expr string) (bool, error) {
	if e == nil {
		return false, fmt.Errorf("rules: evaluator not configured")
	}
	value, err := e.Evaluate(ctx, expr)
	if err != nil {
		return false, err
	}
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return qstate.Truthy(value), nil
}

// StandardFunctions returns a registry with the helpers every option rule
// may rely on. flag(map, key) reports whether map[key] is truthy, which keeps
// expressions portable across engines that reject missing keys.
func StandardFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("flag", 2, func(args ...any) (any, error) {
		key, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("flag key must be a string")
		}
		facts, ok := Facts(args, 0)
		if !ok {
			return false, nil
		}
		return qstate.Truthy(facts[key]), nil
	})
	return registry
}

// base holds what every engine shares.
type base struct {
	engine string
	config
}

func (b *base) record(ctx Context, expr string, start time.Time, err error) {
	b.logger.LogEvaluation(LogEvent{
		Engine:   b.engine,
		Expr:     expr,
		Target:   ctx.label(),
		Duration: time.Since(start),
		Err:      err,
	})
}

func (b *base) cached(expr string) (any, bool) {
	if b.cache == nil {
		return nil, false
	}
	return b.cache.Get(cacheKey(b.engine, expr))
}

func (b *base) store(expr string, program any) {
	if b.cache != nil {
		b.cache.Set(cacheKey(b.engine, expr), program)
	}
}

func (b *base) call(name string, args ...any) (any, error) {
	return b.registry.Call(name, args...)
}
