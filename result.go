package think

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rickchristie/think/schema"
)

const (
	// ResultToolName is the reserved tool the agent calls to finish a session.
	ResultToolName = "return_result"

	resultToolDescription = "Return the final result. Call this when you have completed the task."
)

// IsResultTool reports whether name is the reserved result tool.
func IsResultTool(name string) bool {
	return name == ResultToolName
}

// ResultSchema is the input schema of the result tool for result type T:
// an object with a single required "result" property.
func ResultSchema[T any]() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"result": schema.For[T](),
		},
		"required": []string{"result"},
	}
}

type resultInput[T any] struct {
	Result T `json:"result"`
}

type resultAck struct {
	Success bool `json:"success"`
}

// resultSink is what the session driver needs from the result tool.
type resultSink interface {
	Tool
	Delivered() bool
}

// resultTool captures the agent's answer. Invoke decodes the payload and,
// when a validator is set, lets it veto the value. A rejected payload leaves
// the tool undelivered so the agent can retry.
type resultTool[T any] struct {
	schema   map[string]any
	validate func(T) error

	mu        sync.Mutex
	value     T
	delivered bool
}

func newResultTool[T any](validate func(T) error) *resultTool[T] {
	return &resultTool[T]{
		schema:   ResultSchema[T](),
		validate: validate,
	}
}

func (t *resultTool[T]) Name() string { return ResultToolName }

func (t *resultTool[T]) Description() string { return resultToolDescription }

func (t *resultTool[T]) InputSchema() map[string]any { return t.schema }

func (t *resultTool[T]) Invoke(_ context.Context, codec Codec, input json.RawMessage) (json.RawMessage, error) {
	var in resultInput[T]
	if err := codec.Decode(input, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResultDecode, err)
	}
	if t.validate != nil {
		if err := t.validate(in.Result); err != nil {
			return nil, fmt.Errorf("%w: rejected: %v", ErrResultDecode, err)
		}
	}

	t.mu.Lock()
	t.value = in.Result
	t.delivered = true
	t.mu.Unlock()

	return codec.Encode(resultAck{Success: true})
}

func (t *resultTool[T]) Delivered() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delivered
}

func (t *resultTool[T]) Value() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}
