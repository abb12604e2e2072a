package expressions

import (
	"context"

	"github.com/rendis/flowgraph/pkg/schema"
)

// Engine evaluates expressions against a map environment.
// Two implementations serve style rules: Expr (default) and CEL.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// New returns the engine registered under name. An empty name selects expr.
func New(name string) (Engine, error) {
	switch name {
	case "", "expr":
		return NewExprEngine(), nil
	case "cel":
		return NewCELEngine()
	default:
		return nil, schema.NewErrorf(schema.ErrCodeExpression, "unknown expression engine %q", name).
			WithDetails(map[string]any{"supported": []string{"expr", "cel"}})
	}
}

// Predicate evaluates expression and requires a boolean result.
func Predicate(ctx context.Context, e Engine, expression string, data map[string]any) (bool, error) {
	out, err := e.Evaluate(ctx, expression, data)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeExpression,
			"%s expression %q must return a boolean, got %T", e.Name(), expression, out).
			WithDetails(map[string]any{"expression": expression})
	}
	return b, nil
}
