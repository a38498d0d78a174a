package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec carries the plain Go messages of this package as JSON. It is
// registered under the "json" name so Connect clients that speak JSON work
// against the handlers unchanged.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithCodec is the option both handlers and clients need.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}
