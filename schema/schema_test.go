package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	type input struct {
		raw map[string]any
	}

	type expected struct {
		isNil  bool
		hasErr bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "nil schema returns nil",
			input:    input{raw: nil},
			expected: expected{isNil: true},
		},
		{
			name: "object schema compiles",
			input: input{raw: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string"},
				},
			}},
			expected: expected{},
		},
		{
			name:     "unknown type keyword fails",
			input:    input{raw: map[string]any{"type": "banana"}},
			expected: expected{isNil: true, hasErr: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile(tt.input.raw)

			if tt.expected.hasErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.expected.isNil {
				assert.Nil(t, s)
			} else {
				require.NotNil(t, s)
				assert.Equal(t, tt.input.raw, s.Raw())
			}
		})
	}
}

func TestSchema_ValidateJSON(t *testing.T) {
	raw := Object(map[string]*Property{
		"city":  String("City").MinLength(1),
		"days":  Integer("Forecast days").Min(1).Max(14),
		"units": String("Units").Enum("metric", "imperial"),
	}, "city")

	s, err := Compile(raw)
	require.NoError(t, err)

	type input struct {
		payload string
	}

	type expected struct {
		hasErr bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "valid payload",
			input:    input{payload: `{"city":"Oslo","days":3,"units":"metric"}`},
			expected: expected{hasErr: false},
		},
		{
			name:     "missing required field",
			input:    input{payload: `{"days":3}`},
			expected: expected{hasErr: true},
		},
		{
			name:     "integer out of range",
			input:    input{payload: `{"city":"Oslo","days":30}`},
			expected: expected{hasErr: true},
		},
		{
			name:     "enum mismatch",
			input:    input{payload: `{"city":"Oslo","units":"kelvin"}`},
			expected: expected{hasErr: true},
		},
		{
			name:     "malformed JSON",
			input:    input{payload: `{"city":`},
			expected: expected{hasErr: true},
		},
		{
			name:     "empty payload is an empty object",
			input:    input{payload: ``},
			expected: expected{hasErr: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateJSON([]byte(tt.input.payload))

			if !tt.expected.hasErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "expected *ValidationError, got %T", err)
		})
	}
}

func TestSchema_Validate_NilSchema(t *testing.T) {
	var s *Schema
	assert.NoError(t, s.Validate(map[string]any{"foo": "bar"}))
	assert.NoError(t, s.ValidateJSON([]byte(`not json`)))
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile(map[string]any{"type": 42})
	})
	assert.NotPanics(t, func() {
		MustCompile(map[string]any{"type": "object"})
	})
}

func TestProperty_Build(t *testing.T) {
	type expected struct {
		built map[string]any
	}

	tests := []struct {
		name     string
		input    *Property
		expected expected
	}{
		{
			name:  "string with constraints",
			input: String("Slug").MinLength(1).MaxLength(40).Pattern("^[a-z-]+$"),
			expected: expected{built: map[string]any{
				"type":        "string",
				"description": "Slug",
				"minLength":   1,
				"maxLength":   40,
				"pattern":     "^[a-z-]+$",
			}},
		},
		{
			name:  "integer bounds",
			input: Integer("Count").Min(0).Max(10),
			expected: expected{built: map[string]any{
				"type":        "integer",
				"description": "Count",
				"minimum":     float64(0),
				"maximum":     float64(10),
			}},
		},
		{
			name:  "nullable number with default",
			input: Number("Ratio").Nullable().Default(0.5),
			expected: expected{built: map[string]any{
				"type":        []string{"number", "null"},
				"description": "Ratio",
				"default":     0.5,
			}},
		},
		{
			name:  "enum and format",
			input: String("When").Format("date").Enum("2024-01-01"),
			expected: expected{built: map[string]any{
				"type":        "string",
				"description": "When",
				"format":      "date",
				"enum":        []any{"2024-01-01"},
			}},
		},
		{
			name:  "array of booleans",
			input: Array("Flags", map[string]any{"type": "boolean"}),
			expected: expected{built: map[string]any{
				"type":        "array",
				"description": "Flags",
				"items":       map[string]any{"type": "boolean"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected.built, tt.input.build())
		})
	}
}

func TestObject_Required(t *testing.T) {
	out := Object(map[string]*Property{
		"a": Boolean("A"),
		"b": Boolean("B"),
	}, "a")

	assert.Equal(t, "object", out["type"])
	assert.Len(t, out["properties"], 2)
	assert.Equal(t, []string{"a"}, out["required"])

	_, hasRequired := Object(map[string]*Property{"a": Boolean("A")})["required"]
	assert.False(t, hasRequired)
}

func TestValidationError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ValidationError{Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "schema validation failed: boom", err.Error())
}
