package think

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rickchristie/think/schema"
)

// Tool is a type-erased tool the registry can dispatch to.
//
// Tools hold business logic only. Validation against InputSchema happens in
// the Registry before Invoke is called, and the codec decides the wire
// format.
type Tool interface {
	// Name is the identifier the agent uses to call the tool.
	Name() string

	// Description is shown to the agent.
	Description() string

	// InputSchema is the JSON Schema of the tool's input.
	InputSchema() map[string]any

	// Invoke decodes input, runs the tool and encodes its output. Errors
	// wrap ErrInputDecode, ErrCallable or ErrOutputEncode.
	Invoke(ctx context.Context, codec Codec, input json.RawMessage) (json.RawMessage, error)
}

// ToolFunc adapts a typed Go function into a Tool. The function may close
// over caller state; a session only ever runs one callable at a time.
type ToolFunc[I, O any] struct {
	name        string
	description string
	schema      map[string]any
	fn          func(ctx context.Context, input I) (O, error)
}

// NewTool creates a tool whose input schema is derived from I.
func NewTool[I, O any](
	name, description string,
	fn func(ctx context.Context, input I) (O, error),
) *ToolFunc[I, O] {
	return &ToolFunc[I, O]{
		name:        name,
		description: description,
		schema:      schema.For[I](),
		fn:          fn,
	}
}

// NewToolFunc creates a tool with a hand-written input schema, usually built
// with the schema package.
func NewToolFunc[I, O any](
	name, description string,
	inputSchema map[string]any,
	fn func(ctx context.Context, input I) (O, error),
) *ToolFunc[I, O] {
	return &ToolFunc[I, O]{
		name:        name,
		description: description,
		schema:      inputSchema,
		fn:          fn,
	}
}

func (t *ToolFunc[I, O]) Name() string { return t.name }

func (t *ToolFunc[I, O]) Description() string { return t.description }

func (t *ToolFunc[I, O]) InputSchema() map[string]any { return t.schema }

func (t *ToolFunc[I, O]) Invoke(
	ctx context.Context,
	codec Codec,
	input json.RawMessage,
) (json.RawMessage, error) {
	var in I
	if err := codec.Decode(input, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputDecode, err)
	}

	out, err := t.call(ctx, in)
	if err != nil {
		return nil, err
	}

	data, err := codec.Encode(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputEncode, err)
	}
	return data, nil
}

func (t *ToolFunc[I, O]) call(ctx context.Context, in I) (out O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrCallable, r)
		}
	}()

	out, err = t.fn(ctx, in)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrCallable, err)
	}
	return out, nil
}
