package think

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoice struct {
	Number string  `json:"number"`
	Total  float64 `json:"total"`
}

func TestResultSchema(t *testing.T) {
	out := ResultSchema[invoice]()

	assert.Equal(t, "object", out["type"])
	assert.Equal(t, []string{"result"}, out["required"])
	props := out["properties"].(map[string]any)
	inner := props["result"].(map[string]any)
	assert.Equal(t, "object", inner["type"])
	assert.Equal(t, []string{"number", "total"}, inner["required"])
}

func TestResultTool_Invoke(t *testing.T) {
	type input struct {
		payload  string
		validate func(invoice) error
	}

	type expected struct {
		err       error
		delivered bool
		value     invoice
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:  "valid payload is captured",
			input: input{payload: `{"result":{"number":"INV-1","total":12.5}}`},
			expected: expected{
				delivered: true,
				value:     invoice{Number: "INV-1", Total: 12.5},
			},
		},
		{
			name:     "wrong type",
			input:    input{payload: `{"result":{"number":1,"total":"x"}}`},
			expected: expected{err: ErrResultDecode},
		},
		{
			name:     "not json",
			input:    input{payload: `result`},
			expected: expected{err: ErrResultDecode},
		},
		{
			name: "validator rejects",
			input: input{
				payload: `{"result":{"number":"INV-2","total":-1}}`,
				validate: func(v invoice) error {
					if v.Total < 0 {
						return errors.New("total must not be negative")
					}
					return nil
				},
			},
			expected: expected{err: ErrResultDecode},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := newResultTool[invoice](tt.input.validate)
			out, err := tool.Invoke(context.Background(), DefaultCodec, json.RawMessage(tt.input.payload))

			if tt.expected.err != nil {
				assert.ErrorIs(t, err, tt.expected.err)
				assert.False(t, tool.Delivered())
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, `{"success":true}`, string(out))
			assert.Equal(t, tt.expected.delivered, tool.Delivered())
			assert.Equal(t, tt.expected.value, tool.Value())
		})
	}
}

func TestResultTool_RegisteredUnderReservedName(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.registerReserved(newResultTool[string](nil)))

	assert.True(t, IsResultTool(ResultToolName))
	assert.False(t, IsResultTool("result"))

	// Schema validation happens before decoding.
	_, err := r.Invoke(context.Background(), ResultToolName, json.RawMessage(`{"result":5}`))
	assert.ErrorIs(t, err, ErrInputDecode)

	out, err := r.Invoke(context.Background(), ResultToolName, json.RawMessage(`{"result":"ok"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(out))
}
