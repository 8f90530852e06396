package rpc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype this codec registers under;
// clients must call with grpc.CallContentSubtype(CodecName) (applied to
// every call by callOpts in client.go) to select it over the default
// protobuf codec.
const CodecName = "cbor"

var canonicalMode cbor.EncMode

func init() {
	var err error
	canonicalMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("rpc: building canonical cbor mode: %v", err))
	}
	encoding.RegisterCodec(cborCodec{})
}

// cborCodec implements encoding.Codec, letting grpc.Server and
// grpc.ClientConn frame every rpc message (requests, responses, and
// each streamed element) as CBOR instead of protobuf wire format.
type cborCodec struct{}

func (cborCodec) Marshal(v any) ([]byte, error) {
	return canonicalMode.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

func (cborCodec) Name() string {
	return CodecName
}
