package validation

import (
	"errors"

	"github.com/rendis/flowgraph/pkg/schema"
)

// Validator checks render inputs before any shape is drawn.
type Validator interface {
	Validate(g *schema.Graph) *schema.ValidationResult
}

// GraphValidator runs the two-stage pipeline:
// 1. Structural (JSON Schema)
// 2. References (identities, locations)
type GraphValidator struct {
	schemas *SchemaValidator
}

// NewGraphValidator creates a GraphValidator.
func NewGraphValidator() (*GraphValidator, error) {
	sv, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &GraphValidator{schemas: sv}, nil
}

// Validate runs both stages. Structural errors short-circuit the reference stage.
func (v *GraphValidator) Validate(g *schema.Graph) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if g == nil {
		result.AddError("/", schema.ErrCodeValidation, "graph is nil")
		return result
	}

	if err := v.schemas.ValidateDocument(g); err != nil {
		path := "/"
		var e *schema.Error
		if errors.As(err, &e) {
			if violations, ok := e.Details["violations"].([]string); ok {
				for _, msg := range violations {
					result.AddError(path, schema.ErrCodeValidation, msg)
				}
				return result
			}
		}
		result.AddError(path, schema.ErrCodeValidation, err.Error())
		return result
	}

	result.Merge(CheckReferences(g))
	return result
}

// ReferenceValidator runs only the reference stage. The renderer uses it
// since in-memory graphs are already well-typed; `flowgraph validate` runs
// the full GraphValidator.
type ReferenceValidator struct{}

// Validate implements Validator.
func (ReferenceValidator) Validate(g *schema.Graph) *schema.ValidationResult {
	return CheckReferences(g)
}

var (
	_ Validator = (*GraphValidator)(nil)
	_ Validator = ReferenceValidator{}
)
