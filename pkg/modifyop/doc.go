// Package modifyop defines the modify-operation model: a tagged variant
// over the eight mutating operations, each carrying the header
// {id, timestamp, dirent_version, content_version} the conflict
// resolver and journal replay depend on.
//
// The wire/journal encoding is canonical CBOR (github.com/fxamacker/cbor),
// which gives a deterministic, length-delimited tagged-union binary
// format without a hand-rolled framing format.
package modifyop
