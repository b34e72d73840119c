package think

import (
	"bytes"
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

// Codec converts between wire payloads and Go values for tool inputs,
// tool outputs and results.
type Codec interface {
	Decode(payload json.RawMessage, target any) error
	Encode(value any) (json.RawMessage, error)
}

// JSONCodec is the default Codec, backed by json-iterator configured to
// behave like encoding/json.
type JSONCodec struct {
	api jsoniter.API
}

// NewJSONCodec returns a JSON codec. A strict codec rejects payloads with
// fields the target type does not declare.
func NewJSONCodec(strict bool) *JSONCodec {
	return &JSONCodec{api: jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		DisallowUnknownFields:  strict,
	}.Froze()}
}

// DefaultCodec is used when an engine is built without WithCodec.
var DefaultCodec Codec = NewJSONCodec(false)

func (c *JSONCodec) Decode(payload json.RawMessage, target any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage("{}")
	}
	return c.api.Unmarshal(payload, target)
}

func (c *JSONCodec) Encode(value any) (json.RawMessage, error) {
	data, err := c.api.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
