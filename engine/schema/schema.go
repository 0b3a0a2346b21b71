package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

type Schema map[string]any
type Result = jsonschema.EvaluationResult

func (s *Schema) String() string {
	bytes, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(bytes)
}

func (s *Schema) Compile() (*jsonschema.Schema, error) {
	if s == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

func (s *Schema) Validate(_ context.Context, value any) (*Result, error) {
	schema, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	if schema == nil {
		return nil, nil
	}
	result := schema.Validate(value)
	if result.Valid {
		return result, nil
	}
	return nil, fmt.Errorf("schema validation failed: %v", result.Errors)
}

// -----------------------------------------------------------------------------
// Builders
// -----------------------------------------------------------------------------

func String() Schema  { return Schema{"type": "string"} }
func Number() Schema  { return Schema{"type": "number"} }
func Boolean() Schema { return Schema{"type": "boolean"} }

// OpenObject accepts any object.
func OpenObject() Schema {
	return Schema{"type": "object", "additionalProperties": true}
}

func ArrayOf(items Schema) Schema {
	return Schema{"type": "array", "items": map[string]any(items)}
}

func AnyOf(variants ...Schema) Schema {
	out := make([]any, 0, len(variants))
	for _, v := range variants {
		out = append(out, map[string]any(v))
	}
	return Schema{"anyOf": out}
}

// Nullable also accepts null, which is how an absent optional value is
// represented in structured output.
func Nullable(s Schema) Schema {
	return AnyOf(s, Schema{"type": "null"})
}

// Field is one named member of an object schema.
type Field struct {
	Name     string
	Schema   Schema
	Required bool
}

// ObjectOf builds an object schema whose properties follow fields order.
func ObjectOf(fields []Field, closed bool) Schema {
	props := make(map[string]any, len(fields))
	required := make([]any, 0, len(fields))
	for _, f := range fields {
		props[f.Name] = map[string]any(f.Schema)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	s := Schema{"type": "object", "properties": props, "required": required}
	if closed {
		s["additionalProperties"] = false
	}
	return s
}
