package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

var (
	timeType       = reflect.TypeFor[time.Time]()
	durationType   = reflect.TypeFor[time.Duration]()
	rawMessageType = reflect.TypeFor[json.RawMessage]()
)

// For derives the JSON Schema describing values of T.
//
// Struct fields follow encoding/json naming. A field is required unless it
// is a pointer or tagged omitempty, and a `description` tag documents it.
// Interface types, json.RawMessage and recursive references produce the
// permissive schema {}.
func For[T any]() map[string]any {
	return Of(reflect.TypeFor[T]())
}

// Of is the reflect.Type form of [For].
func Of(t reflect.Type) map[string]any {
	return generate(t, map[reflect.Type]bool{})
}

func generate(t reflect.Type, visiting map[reflect.Type]bool) map[string]any {
	if t == nil {
		return map[string]any{}
	}

	if t.Kind() == reflect.Pointer {
		out := generate(t.Elem(), visiting)
		if typ, ok := out["type"].(string); ok {
			out["type"] = []string{typ, "null"}
		}
		return out
	}

	switch t {
	case timeType:
		return map[string]any{"type": "string", "format": "date-time"}
	case durationType:
		return map[string]any{
			"type":        "string",
			"description": "Duration string such as '1h30m' or '2s'",
		}
	case rawMessageType:
		return map[string]any{}
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			// encoding/json writes []byte as base64.
			return map[string]any{"type": "string", "contentEncoding": "base64"}
		}
		return map[string]any{"type": "array", "items": generate(t.Elem(), visiting)}
	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": generate(t.Elem(), visiting),
		}
	case reflect.Struct:
		if visiting[t] {
			return map[string]any{}
		}
		visiting[t] = true
		defer delete(visiting, t)
		return structSchema(t, visiting)
	default:
		return map[string]any{}
	}
}

func structSchema(t reflect.Type, visiting map[reflect.Type]bool) map[string]any {
	properties := make(map[string]any)
	required := make([]string, 0)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}

		name := field.Name
		omitempty := false
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" || opt == "omitzero" {
					omitempty = true
				}
			}
		}

		fieldSchema := generate(field.Type, visiting)
		if desc := field.Tag.Get("description"); desc != "" {
			fieldSchema["description"] = desc
		}
		properties[name] = fieldSchema

		if !omitempty && field.Type.Kind() != reflect.Pointer {
			required = append(required, name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
