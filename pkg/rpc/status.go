package rpc

import (
	"context"
	"strconv"

	"google.golang.org/grpc/metadata"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
)

// statusCodeHeader is the protocol-metadata header key carrying the
// numeric errs.Kind of a failed RPC.
const statusCodeHeader = "nimbusfs-status-code"

// statusDetailsHeader carries the opaque per-kind details payload.
const statusDetailsHeader = "nimbusfs-status-details"

// SetTrailerStatus builds the gRPC trailer metadata carrying st's kind
// and details; the caller attaches it with grpc.SetTrailer. The message
// itself travels as the RPC's own error string; only the kind and
// details need a side channel.
func SetTrailerStatus(ctx context.Context, st *errs.Status) metadata.MD {
	md := metadata.Pairs(statusCodeHeader, strconv.Itoa(int(st.Kind)))
	if len(st.Details) > 0 {
		md.Append(statusDetailsHeader, string(st.Details))
	}
	return md
}

// StatusFromTrailer reconstructs an *errs.Status from a gRPC trailer
// previously populated by SetTrailerStatus, falling back to
// errs.DatabaseError if no recognizable status header is present.
func StatusFromTrailer(md metadata.MD, message string) *errs.Status {
	vals := md.Get(statusCodeHeader)
	kind := errs.DatabaseError
	if len(vals) > 0 {
		if n, err := strconv.Atoi(vals[0]); err == nil {
			kind = errs.Kind(n)
		}
	}
	st := errs.New(kind, "%s", message)
	if details := md.Get(statusDetailsHeader); len(details) > 0 {
		st = st.WithDetails([]byte(details[0]))
	}
	return st
}
