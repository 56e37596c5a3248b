package codec

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Protobuf encodes untyped values as a google.protobuf.Value message.
// Only JSON-like shapes survive: numbers come back as float64 and
// encoding fails for types structpb.NewValue does not know.
type Protobuf struct{}

var _ Codec[any] = Protobuf{}

func (Protobuf) Encode(v any) ([]byte, error) {
	pv, err := structpb.NewValue(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pv)
}

func (Protobuf) Decode(b []byte) (any, error) {
	var pv structpb.Value
	if err := proto.Unmarshal(b, &pv); err != nil {
		return nil, err
	}
	return pv.AsInterface(), nil
}
