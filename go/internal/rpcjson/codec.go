// Package rpcjson lets connect handlers and clients exchange plain Go structs
// as JSON, without generated protobuf messages.
package rpcjson

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Name replaces connect's protojson codec for application/json requests.
const Name = "json"

// Codec marshals request and response structs with encoding/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string {
	return Name
}

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("rpcjson marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("rpcjson unmarshal %T: %w", msg, err)
	}
	return nil
}

// HandlerOptions are the options every JSON handler needs.
func HandlerOptions(extra ...connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, extra...)
}

// ClientOptions are the options every JSON client needs.
func ClientOptions(extra ...connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, extra...)
}
