package expressions

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rendis/flowgraph/pkg/schema"
)

// ruleEnv is the environment every style rule compiles against. Rules are
// checked once, when a policy is built, so an unknown variable such as
// `stauts` is reported there instead of silently never matching.
var ruleEnv = map[string]any{
	"status": "",
	"node":   map[string]any{},
}

// ExprEngine evaluates style rules written in expr-lang, e.g.
// `status endsWith "-STARTED"` or `node.id startsWith "main_dag:"`.
// Programs are compiled once per rule text and shared across renders.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates an empty expr engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{cache: make(map[string]*vm.Program)}
}

// Name returns "expr".
func (e *ExprEngine) Name() string {
	return "expr"
}

// Evaluate runs the rule against one node's data. Keys missing from data
// keep their zero values: an empty status and an empty node.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}

	env := make(map[string]any, len(ruleEnv))
	for k, v := range ruleEnv {
		env[k] = v
	}
	for k, v := range data {
		env[k] = v
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, ruleError("evaluate", expression, err)
	}
	return out, nil
}

// Compile checks a rule against the rule environment without running it.
func (e *ExprEngine) Compile(expression string) error {
	_, err := e.program(expression)
	return err
}

func (e *ExprEngine) program(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty expr rule")
	}

	e.mu.RLock()
	prg, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression, expr.Env(ruleEnv))
	if err != nil {
		return nil, ruleError("compile", expression, err)
	}

	e.mu.Lock()
	e.cache[expression] = prg
	e.mu.Unlock()
	return prg, nil
}

func ruleError(stage, expression string, err error) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeExpression, "expr rule %q: %s failed: %s", expression, stage, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

var _ Engine = (*ExprEngine)(nil)
