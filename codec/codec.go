// Package codec provides the serializers relcache uses for entity values.
//
// Entity values are untyped (records, sequences, scalars), so the codecs the
// cache consumes are Codec[any]: Decode must rebuild records as map[string]any
// and sequences as []any, or patch merging will treat them as scalars.
package codec

import "fmt"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// ByName returns the Codec[any] registered under name:
// "json" (default when name is empty), "cbor", "msgpack" or "protobuf".
func ByName(name string) (Codec[any], error) {
	switch name {
	case "", "json":
		return JSON[any]{}, nil
	case "cbor":
		return NewCBOR(false)
	case "msgpack":
		return Msgpack[any]{}, nil
	case "protobuf", "proto":
		return Protobuf{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
