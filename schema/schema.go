// Package schema builds, generates and validates the JSON Schemas that
// describe tool inputs and typed results.
//
// Schemas are plain map[string]any values so they can be handed to any
// agent transport unchanged. Use [For] to derive one from a Go type, or the
// builders for hand-written schemas:
//
//	schema.Object(map[string]*schema.Property{
//	    "query": schema.String("Search query"),
//	    "limit": schema.Integer("Max results").Min(1).Max(100).Default(10),
//	}, "query") // "query" is required
//
// [Compile] turns a raw schema into a validator.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema represents a JSON Schema definition.
// It provides both the raw map representation (for serialization/prompts)
// and a compiled validator (for runtime validation).
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the underlying map[string]any representation.
// This is useful for serialization and passing to LLMs.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate checks an already decoded value against the schema. Numbers
// must be json.Number or native Go numerics.
func (s *Schema) Validate(data any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	err := s.compiled.Validate(data)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidateJSON decodes a raw JSON document and validates it. An empty
// payload is treated as an empty object.
func (s *Schema) ValidateJSON(raw []byte) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("malformed JSON: %w", err)}
	}
	return s.Validate(doc)
}

// ValidationError wraps a JSON Schema validation error with a cleaner message.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile compiles a raw schema map into a Schema with a compiled validator.
// Returns an error if the schema is invalid.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	schemaJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	schemaData, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Schema{
		raw:      raw,
		compiled: compiled,
	}, nil
}

// MustCompile is like Compile but panics on error.
// Use this for schemas defined at init time.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Object creates an object schema. Names listed in required must be present.
//
//	schema.Object(map[string]*schema.Property{
//	    "city":  schema.String("City to look up"),
//	    "units": schema.String("Unit system").Enum("metric", "imperial"),
//	}, "city")
func Object(properties map[string]*Property, required ...string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, prop := range properties {
		props[name] = prop.build()
	}

	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// Property is a single object member under construction. The modifiers
// return the receiver so they can be chained.
type Property struct {
	typ         string
	description string
	enum        []any
	format      string
	minimum     *float64
	maximum     *float64
	minLength   *int
	maxLength   *int
	pattern     string
	items       map[string]any
	def         any
	nullable    bool
}

func (p *Property) build() map[string]any {
	m := map[string]any{}

	switch {
	case p.typ != "" && p.nullable:
		m["type"] = []string{p.typ, "null"}
	case p.typ != "":
		m["type"] = p.typ
	}
	if p.description != "" {
		m["description"] = p.description
	}
	if len(p.enum) > 0 {
		m["enum"] = p.enum
	}
	if p.format != "" {
		m["format"] = p.format
	}
	if p.minimum != nil {
		m["minimum"] = *p.minimum
	}
	if p.maximum != nil {
		m["maximum"] = *p.maximum
	}
	if p.minLength != nil {
		m["minLength"] = *p.minLength
	}
	if p.maxLength != nil {
		m["maxLength"] = *p.maxLength
	}
	if p.pattern != "" {
		m["pattern"] = p.pattern
	}
	if p.items != nil {
		m["items"] = p.items
	}
	if p.def != nil {
		m["default"] = p.def
	}
	return m
}

// String creates a string property.
func String(description string) *Property {
	return &Property{typ: "string", description: description}
}

// Integer creates an integer property.
func Integer(description string) *Property {
	return &Property{typ: "integer", description: description}
}

// Number creates a floating point property.
func Number(description string) *Property {
	return &Property{typ: "number", description: description}
}

// Boolean creates a boolean property.
func Boolean(description string) *Property {
	return &Property{typ: "boolean", description: description}
}

// Array creates an array property whose elements match items.
//
//	schema.Array("Paragraphs to quote", map[string]any{"type": "integer"})
func Array(description string, items map[string]any) *Property {
	return &Property{typ: "array", description: description, items: items}
}

// Enum restricts the property to the given values.
func (p *Property) Enum(values ...any) *Property {
	p.enum = values
	return p
}

// Format sets a string format such as "email", "uri" or "date-time".
func (p *Property) Format(format string) *Property {
	p.format = format
	return p
}

// Min sets the inclusive lower bound of a numeric property.
func (p *Property) Min(min float64) *Property {
	p.minimum = &min
	return p
}

// Max sets the inclusive upper bound of a numeric property.
func (p *Property) Max(max float64) *Property {
	p.maximum = &max
	return p
}

func (p *Property) MinLength(min int) *Property {
	p.minLength = &min
	return p
}

func (p *Property) MaxLength(max int) *Property {
	p.maxLength = &max
	return p
}

// Pattern sets a regular expression the string must match.
func (p *Property) Pattern(pattern string) *Property {
	p.pattern = pattern
	return p
}

func (p *Property) Default(value any) *Property {
	p.def = value
	return p
}

// Nullable additionally allows JSON null.
func (p *Property) Nullable() *Property {
	p.nullable = true
	return p
}
