// Package rpc defines the wire protocol between a nimbusfs client and
// server: six RPCs, two of them server-streaming, carried over plain
// google.golang.org/grpc transport.
//
// No .proto toolchain is assumed to be available, so messages are
// plain Go structs with cbor struct tags, and the service is registered
// against grpc.Server by hand as a grpc.ServiceDesc rather than
// generated by protoc-gen-go-grpc. Wire framing uses a custom
// encoding.Codec (subtype "cbor", see codec.go) registered globally,
// so the real grpc client/server machinery — service dispatch,
// streaming, metadata, cancellation — all apply unchanged; only the
// code-generation step is replaced by hand-written structs.
package rpc
