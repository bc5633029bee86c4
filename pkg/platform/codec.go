// Package platform connects Go code to the native host through named
// channels. Method channels carry request/response calls such as permission
// queries; event channels carry asynchronous events such as the outcome of a
// permission dialog.
package platform

import (
	"bytes"
	"encoding/json"
)

// MessageCodec converts channel payloads between Go values and the bytes
// exchanged with native code.
type MessageCodec interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// JSONCodec is the MessageCodec spoken by the native permission host. Maps
// decode to map[string]any and numbers to float64.
type JSONCodec struct{}

// Encode marshals value.
func (JSONCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode unmarshals data. Empty or whitespace-only input means "no payload"
// and decodes to nil.
func (JSONCodec) Decode(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	err := json.Unmarshal(data, &v)
	return v, err
}

// DefaultCodec is the codec used by every channel in this package.
var DefaultCodec MessageCodec = JSONCodec{}
