package formula

import (
	"fmt"
	"math"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const defaultCacheSize = 1024

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithCacheSize bounds the number of compiled formulas kept in memory. When the
// cache is full it is cleared before the next insert.
func WithCacheSize(size int) EngineOption {
	return func(e *Engine) {
		if size > 0 {
			e.limit = size
		}
	}
}

type compiled struct {
	program    *Program
	bytecode   *vm.Program
	references []string
}

// Engine evaluates merchant formulas. Each distinct expression text is parsed,
// lowered and compiled once; the compiled program is shared by concurrent
// callers.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*compiled
	limit int
}

// NewEngine constructs an Engine.
func NewEngine(options ...EngineOption) *Engine {
	e := &Engine{
		cache: make(map[string]*compiled),
		limit: defaultCacheSize,
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

var defaultEngine = NewEngine()

// Evaluate runs expression with the package-level engine.
func Evaluate(expression string, vars map[string]float64, scope Scope) (float64, error) {
	return defaultEngine.Evaluate(expression, vars, scope)
}

// References returns the lower-cased variable names read by expression.
func References(expression string) ([]string, error) {
	prg, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	return prg.References(), nil
}

// Evaluate runs expression against the bound variables. Every referenced
// variable must be bound; the result must be a finite number.
func (e *Engine) Evaluate(expression string, vars map[string]float64, scope Scope) (result float64, err error) {
	c, err := e.compile(expression)
	if err != nil {
		return 0, err
	}

	for _, name := range c.references {
		if _, ok := vars[name]; !ok {
			return 0, &EvaluationError{
				Expression: expression,
				Reason:     ReasonUnresolved,
				Err:        fmt.Errorf("variable [%s] is not bound", name),
			}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = 0
			err = &EvaluationError{Expression: expression, Reason: ReasonRuntime, Err: fmt.Errorf("%v", r)}
		}
	}()

	out, runErr := expr.Run(c.bytecode, runtimeEnv(vars, scope))
	if runErr != nil {
		return 0, wrapRuntime(expression, runErr)
	}

	n, convErr := toNumber(out)
	if convErr != nil {
		return 0, &EvaluationError{Expression: expression, Reason: ReasonNotNumeric, Err: convErr}
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, &EvaluationError{
			Expression: expression,
			Reason:     ReasonNotFinite,
			Err:        fmt.Errorf("result is %v", n),
		}
	}
	return n, nil
}

func (e *Engine) compile(expression string) (*compiled, error) {
	e.mu.RLock()
	c, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cache[expression]; ok {
		return c, nil
	}

	prg, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	if err := checkCalls(prg); err != nil {
		return nil, err
	}
	bytecode, err := expr.Compile(lowerProgram(prg), expr.Env(compileEnv))
	if err != nil {
		return nil, &EvaluationError{Expression: expression, Reason: ReasonSyntax, Err: err}
	}

	c = &compiled{program: prg, bytecode: bytecode, references: prg.References()}
	if len(e.cache) >= e.limit {
		e.cache = make(map[string]*compiled)
	}
	e.cache[expression] = c
	return c, nil
}

// checkCalls rejects unknown functions and argument counts the library does not
// accept. Every call in a formula is syntactic so arity is known before running.
func checkCalls(prg *Program) error {
	for _, call := range prg.calls() {
		fn, ok := library[call.name]
		if !ok {
			return &EvaluationError{
				Expression: prg.Source(),
				Reason:     ReasonUnknownFunction,
				Position:   call.pos,
				Err:        fmt.Errorf("unknown function %q", call.name),
			}
		}
		if err := fn.checkArity(call.name, len(call.args)); err != nil {
			return withExpression(err, prg.Source(), call.pos)
		}
	}
	return nil
}

type callable = func(args ...any) (any, error)

var compileEnv = func() map[string]any {
	env := map[string]any{varsIdent: map[string]any{}}
	for name := range library {
		env[functionPrefix+name] = callable(func(args ...any) (any, error) { return nil, nil })
	}
	return env
}()

func runtimeEnv(vars map[string]float64, scope Scope) map[string]any {
	bound := make(map[string]any, len(vars))
	for name, v := range vars {
		bound[name] = v
	}
	env := make(map[string]any, len(library)+1)
	env[varsIdent] = bound
	for name, fn := range library {
		env[functionPrefix+name] = callable(func(args ...any) (any, error) {
			if err := fn.checkArity(name, len(args)); err != nil {
				return nil, err
			}
			return fn.call(scope, args)
		})
	}
	return env
}

func wrapRuntime(expression string, err error) error {
	if evalErr, ok := IsEvaluationError(err); ok {
		return withExpression(evalErr, expression, evalErr.Position)
	}
	return &EvaluationError{Expression: expression, Reason: ReasonRuntime, Err: err}
}

func withExpression(err error, expression string, pos int) error {
	evalErr, ok := IsEvaluationError(err)
	if !ok {
		return &EvaluationError{Expression: expression, Reason: ReasonRuntime, Position: pos, Err: err}
	}
	out := *evalErr
	out.Expression = expression
	out.Position = pos
	return &out
}
