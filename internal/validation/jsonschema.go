package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rendis/flowgraph/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	graphSchemaURL = "https://flowgraph.dev/schemas/graph.json"
	themeSchemaURL = "https://flowgraph.dev/schemas/theme.json"
)

// graphSchemaJSON describes an input document. Unknown top-level keys are
// tolerated so that snapshots can carry extra page data.
const graphSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowgraph.dev/schemas/graph.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "name": { "type": "string" },
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "links": {
      "type": ["array", "null"],
      "items": { "$ref": "#/$defs/link" }
    },
    "locations": {
      "type": ["object", "null"],
      "additionalProperties": { "$ref": "#/$defs/location" }
    },
    "statuses": {
      "type": ["object", "null"],
      "additionalProperties": { "type": "string" }
    }
  },
  "$defs": {
    "node": {
      "type": "object",
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "name": { "type": "string", "minLength": 1 },
        "received": { "type": ["number", "null"] },
        "succeeded": { "type": ["number", "null"] }
      },
      "anyOf": [
        { "required": ["id"] },
        { "required": ["name"] }
      ],
      "additionalProperties": false
    },
    "link": {
      "type": "object",
      "required": ["source", "target"],
      "properties": {
        "source": { "type": "string", "minLength": 1 },
        "target": { "type": "string", "minLength": 1 }
      },
      "additionalProperties": false
    },
    "location": {
      "type": "object",
      "required": ["row", "column"],
      "properties": {
        "row": { "type": "integer", "minimum": 0 },
        "column": { "type": "integer", "minimum": 0 }
      },
      "additionalProperties": false
    }
  }
}`

// themeSchemaJSON describes a style theme file.
const themeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowgraph.dev/schemas/theme.json",
  "type": "object",
  "properties": {
    "inherit": { "type": "boolean" },
    "engine": { "type": "string", "enum": ["expr", "cel"] },
    "statuses": {
      "type": "object",
      "additionalProperties": { "$ref": "#/$defs/style" }
    },
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["when", "style"],
        "properties": {
          "when": { "type": "string", "minLength": 1 },
          "style": { "$ref": "#/$defs/style" }
        },
        "additionalProperties": false
      }
    },
    "fallback": { "$ref": "#/$defs/style" },
    "line": { "$ref": "#/$defs/style" }
  },
  "additionalProperties": false,
  "$defs": {
    "style": {
      "type": "object",
      "required": ["name", "color"],
      "properties": {
        "name": { "type": "string", "pattern": "^[a-z][a-z0-9-]*$" },
        "color": { "type": "string", "pattern": "^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$" }
      },
      "additionalProperties": false
    }
  }
}`

// SchemaValidator checks input documents and themes against JSON Schema Draft 2020-12.
// It is safe for concurrent use.
type SchemaValidator struct {
	graphSchema *jsonschema.Schema
	themeSchema *jsonschema.Schema
}

// NewSchemaValidator compiles the embedded graph and theme schemas.
func NewSchemaValidator() (*SchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	for url, src := range map[string]string{
		graphSchemaURL: graphSchemaJSON,
		themeSchemaURL: themeSchemaJSON,
	} {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", url, err)
		}
	}

	graphSchema, err := c.Compile(graphSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile graph schema: %w", err)
	}
	themeSchema, err := c.Compile(themeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile theme schema: %w", err)
	}

	return &SchemaValidator{graphSchema: graphSchema, themeSchema: themeSchema}, nil
}

// ValidateDocument validates a decoded JSON value (as produced by
// encoding/json or a jq query) against the graph schema.
func (v *SchemaValidator) ValidateDocument(doc any) error {
	if doc == nil {
		return schema.NewError(schema.ErrCodeValidation, "graph document is empty")
	}
	val, err := toJSONValue(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize graph document").WithCause(err)
	}
	if err := v.graphSchema.Validate(val); err != nil {
		return toSchemaError(err)
	}
	return nil
}

// ValidateTheme validates raw theme JSON.
func (v *SchemaValidator) ValidateTheme(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return schema.NewError(schema.ErrCodeConfig, "theme is not valid JSON").WithCause(err)
	}
	if err := v.themeSchema.Validate(doc); err != nil {
		e := toSchemaError(err)
		e.Code = schema.ErrCodeConfig
		return e
	}
	return nil
}

var defaultSchemas = sync.OnceValues(NewSchemaValidator)

// ValidateTheme validates raw theme JSON with the shared validator.
func ValidateTheme(data []byte) error {
	v, err := defaultSchemas()
	if err != nil {
		return err
	}
	return v.ValidateTheme(data)
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toSchemaError converts a jsonschema.ValidationError into an *schema.Error
// listing every leaf violation with its instance location.
func toSchemaError(err error) *schema.Error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
