package deliverypb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName matches grpc-go's default negotiated content-subtype name
// ("proto"), so registering under it overrides the default codec
// transparently — no per-call grpc.CallContentSubtype option needed on
// either the client or server side.
const codecName = "proto"

// jsonCodec implements encoding.Codec (the public extension point
// google.golang.org/grpc/encoding exposes) over plain Go structs, since
// no generated protobuf Marshal/Unmarshal exists for this service.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
