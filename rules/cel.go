package rules

import (
	"time"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celEvaluator struct {
	base
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...Option) Evaluator {
	return &celEvaluator{base: base{engine: EngineCEL, config: applyOptions(opts)}}
}

func (e *celEvaluator) Engine() string { return e.engine }

func (e *celEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string) (Rule, error) {
	if expression == "" {
		return nil, wrapEngineError(e.engine, ErrEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &celRule{evaluator: e, program: program, expression: expression}, nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if cached, ok := e.cached(expression); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}
	env, err := e.buildEnv()
	if err != nil {
		return nil, wrapEngineError(e.engine, err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(e.engine, expression, "", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError(e.engine, expression, "", err)
	}
	e.store(expression, program)
	return program, nil
}

func (e *celEvaluator) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("theme", celgo.DynType),
		celgo.Variable("site", celgo.DynType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("now", celgo.TimestampType),
	}
	for _, name := range e.registry.Names() {
		arity, _ := e.registry.Arity(name)
		if overloads := e.overloads(name, arity); len(overloads) > 0 {
			opts = append(opts, celgo.Function(name, overloads...))
		}
	}
	return celgo.NewEnv(opts...)
}

// overloads declares dyn overloads matching arity. CEL bindings stop at two
// arguments, so variadic helpers are reachable with one or two.
func (e *celEvaluator) overloads(name string, arity int) []celgo.FunctionOpt {
	var out []celgo.FunctionOpt
	if arity == 1 || arity == Variadic {
		out = append(out, celgo.Overload(name+"_dyn", []*celgo.Type{celgo.DynType}, celgo.DynType,
			celgo.UnaryBinding(func(arg ref.Val) ref.Val {
				return e.invoke(name, arg)
			})))
	}
	if arity == 2 || arity == Variadic {
		out = append(out, celgo.Overload(name+"_dyn_dyn", []*celgo.Type{celgo.DynType, celgo.DynType}, celgo.DynType,
			celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
				return e.invoke(name, lhs, rhs)
			})))
	}
	return out
}

func (e *celEvaluator) invoke(name string, values ...ref.Val) ref.Val {
	args := make([]any, 0, len(values))
	for _, value := range values {
		args = append(args, value.Value())
	}
	result, err := e.call(name, args...)
	if err != nil {
		return types.NewErr("rules: %s: %v", name, err)
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celRule struct {
	evaluator  *celEvaluator
	program    celgo.Program
	expression string
}

func (r *celRule) Evaluate(ctx Context) (any, error) {
	start := time.Now()
	ctx = ctx.withDefaults()
	out, _, err := r.program.Eval(ctx.bindings())
	err = wrapEvaluationError(r.evaluator.engine, r.expression, ctx.label(), err)
	r.evaluator.record(ctx, r.expression, start, err)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}
