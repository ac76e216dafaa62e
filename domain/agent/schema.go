package agent

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FieldType is the expected type of a state field.
type FieldType string

const (
	TypeAny    FieldType = "any"
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeMap    FieldType = "map"
	TypeList   FieldType = "list"
)

// Field describes one top-level key of agent state.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Default  any       `json:"default,omitempty" yaml:"default,omitempty"`
}

// Schema is the declared shape of agent state. An empty schema accepts
// anything. Strict schemas reject keys that are not declared.
type Schema struct {
	Fields []Field `json:"fields,omitempty" yaml:"fields,omitempty"`
	Strict bool    `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// IsEmpty reports whether the schema declares no fields.
func (s Schema) IsEmpty() bool {
	return len(s.Fields) == 0 && !s.Strict
}

// Clone returns a copy with its own field list.
func (s Schema) Clone() Schema {
	if s.Fields != nil {
		s.Fields = append([]Field(nil), s.Fields...)
	}
	return s
}

// Field returns the descriptor with the given name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validator is the state-validation collaborator.
type Validator interface {
	// Validate checks state against schema and returns the (possibly
	// defaulted) state to use.
	Validate(schema Schema, state map[string]any) (map[string]any, error)
}

// ValidationErrors collects schema violations.
type ValidationErrors []FieldError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is match ErrSchemaViolation.
func (e ValidationErrors) Unwrap() error {
	return ErrSchemaViolation
}

// SchemaValidator applies defaults and checks required fields and types.
type SchemaValidator struct{}

// Validate implements Validator.
func (SchemaValidator) Validate(schema Schema, state map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(state)+len(schema.Fields))
	for k, v := range state {
		out[k] = v
	}

	var errs ValidationErrors
	for _, f := range schema.Fields {
		v, ok := out[f.Name]
		if !ok || v == nil {
			if f.Default != nil {
				out[f.Name] = cloneValue(f.Default)
				continue
			}
			if f.Required {
				errs = append(errs, FieldError{Field: f.Name, Message: "is required"})
			}
			continue
		}
		if !matchesType(f.Type, v) {
			errs = append(errs, FieldError{
				Field:   f.Name,
				Message: fmt.Sprintf("expected %s, got %T", f.Type, v),
			})
		}
	}

	if schema.Strict {
		var unknown []string
		for k := range out {
			if _, ok := schema.Field(k); !ok {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)
		for _, k := range unknown {
			errs = append(errs, FieldError{Field: k, Message: "is not declared"})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func matchesType(t FieldType, v any) bool {
	switch t {
	case TypeAny, "":
		return true
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeInt:
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			return n == math.Trunc(n)
		case float32:
			return float64(n) == math.Trunc(float64(n))
		}
		return false
	case TypeFloat:
		switch v.(type) {
		case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case TypeMap:
		_, ok := v.(map[string]any)
		return ok
	case TypeList:
		switch v.(type) {
		case []any, []string, []int, []float64, []map[string]any:
			return true
		}
		return false
	default:
		return false
	}
}

var _ Validator = SchemaValidator{}
