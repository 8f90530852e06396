package api

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"

	"github.com/nimbusfs/nimbusfs/pkg/log"
)

// LoggingInterceptor creates a gRPC unary interceptor that logs every
// RPC's method, duration and error status through pkg/log.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		l := log.WithRPC(methodName(info.FullMethod))
		evt := l.Info()
		if err != nil {
			evt = l.Warn().Err(err)
		}
		evt.Dur("duration", time.Since(start)).Msg("rpc handled")

		return resp, err
	}
}

// StreamLoggingInterceptor is the server-streaming counterpart of
// LoggingInterceptor, used for List and GetBlobs.
func StreamLoggingInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)

		l := log.WithRPC(methodName(info.FullMethod))
		evt := l.Info()
		if err != nil {
			evt = l.Warn().Err(err)
		}
		evt.Dur("duration", time.Since(start)).Msg("stream rpc handled")

		return err
	}
}

// methodName extracts the bare method name from a full gRPC path, e.g.
// "/nimbusfs.FileSync/ApplyJournal" -> "ApplyJournal".
func methodName(fullMethod string) string {
	parts := strings.Split(fullMethod, "/")
	if len(parts) == 0 {
		return fullMethod
	}
	return parts[len(parts)-1]
}
