package validation

import (
	"encoding/json"
	"testing"

	"github.com/rendis/flowgraph/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	return v
}

func TestNewSchemaValidator(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)
	assert.NotNil(t, v.graphSchema)
	assert.NotNil(t, v.themeSchema)
}

func TestValidateDocument_Valid(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	doc := decode(t, `{
		"name": "main_dag",
		"workflow_name": "extra keys are tolerated",
		"nodes": [{"id": "A", "received": 1.5, "succeeded": 3}, {"name": "B"}],
		"links": [{"source": "A", "target": "B"}],
		"locations": {"A": {"row": 0, "column": 0}, "B": {"row": 0, "column": 1}},
		"statuses": {"A": "SUCCESS"}
	}`)
	assert.NoError(t, v.ValidateDocument(doc))

	assert.NoError(t, v.ValidateDocument(decode(t, `{"nodes": []}`)))
}

func TestValidateDocument_Violations(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	tests := map[string]string{
		"missing nodes":       `{"links": []}`,
		"node without id":     `{"nodes": [{"received": 1}]}`,
		"node extra field":    `{"nodes": [{"id": "A", "state": "SUCCESS"}]}`,
		"link missing target": `{"nodes": [], "links": [{"source": "A"}]}`,
		"fractional row":      `{"nodes": [], "locations": {"A": {"row": 0.5, "column": 0}}}`,
		"negative column":     `{"nodes": [], "locations": {"A": {"row": 0, "column": -1}}}`,
		"numeric status":      `{"nodes": [], "statuses": {"A": 1}}`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			err := v.ValidateDocument(decode(t, doc))
			require.Error(t, err)

			var fgErr *schema.Error
			require.ErrorAs(t, err, &fgErr)
			assert.Equal(t, schema.ErrCodeValidation, fgErr.Code)
			assert.NotEmpty(t, fgErr.Details["violations"])
		})
	}

	require.Error(t, v.ValidateDocument(nil))
}

func TestValidateTheme(t *testing.T) {
	assert.NoError(t, ValidateTheme([]byte(`{"inherit": true}`)))
	assert.NoError(t, ValidateTheme([]byte(`{
		"engine": "cel",
		"statuses": {"SUCCESS": {"name": "green", "color": "#2ECC40"}},
		"rules": [{"when": "status.endsWith(\"-STARTED\")", "style": {"name": "orange", "color": "#F80"}}],
		"fallback": {"name": "pink", "color": "#FFC0CB"}
	}`)))

	err := ValidateTheme([]byte(`{"fallback": {"name": "Pink", "color": "#FFC0CB"}}`))
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeConfig))

	err = ValidateTheme([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeConfig))
}

func TestGraphValidator(t *testing.T) {
	v, err := NewGraphValidator()
	require.NoError(t, err)

	assert.True(t, v.Validate(twoNodeGraph()).Valid())
	assert.False(t, v.Validate(nil).Valid())

	g := twoNodeGraph()
	g.Locations["B"] = schema.Location{Row: -2, Column: 0}
	result := v.Validate(g)
	require.False(t, result.Valid())
	assert.Equal(t, schema.ErrCodeValidation, result.Errors[0].Code, "schema stage reports before references")

	g = twoNodeGraph()
	delete(g.Locations, "A")
	result = v.Validate(g)
	require.False(t, result.Valid())
	assert.Equal(t, schema.IssueMissingLocation, result.Errors[0].Code)
}

func TestReferenceValidator(t *testing.T) {
	var v Validator = ReferenceValidator{}
	assert.True(t, v.Validate(twoNodeGraph()).Valid())
}
