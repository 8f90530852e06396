package api

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/log"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
	"github.com/nimbusfs/nimbusfs/pkg/opapply"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
	"github.com/nimbusfs/nimbusfs/pkg/serverfs"
)

// Server implements rpc.Server against an authoritative serverfs.FS.
type Server struct {
	fs   *serverfs.FS
	grpc *grpc.Server
}

// NewServer creates an API server with request logging wired in. There
// is no mTLS here: the transport is plain TCP, matching the plain
// credentials nimbusfs-agent passes to pkg/rpc.Dial.
func NewServer(fs *serverfs.FS) *Server {
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(LoggingInterceptor()),
		grpc.StreamInterceptor(StreamLoggingInterceptor()),
	)
	s := &Server{fs: fs, grpc: grpcServer}
	rpc.RegisterServer(grpcServer, s)
	return s
}

// Start listens on addr and serves until Stop is called or Serve errors.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen: %w", err)
	}
	log.Info(fmt.Sprintf("gRPC API listening on %s", addr))
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

func (s *Server) List(req *rpc.ListRequest, stream rpc.ListSendStream) error {
	children, err := s.fs.Entities.ListChildren(req.ID)
	if err != nil {
		return statusErr(stream.Context(), err)
	}
	for _, child := range children {
		if err := stream.Send(&rpc.ListElement{Entity: *child}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) ListChunks(ctx context.Context, req *rpc.ListChunksRequest) (*rpc.ListChunksResponse, error) {
	chunks, err := s.fs.Entities.GetChunks(req.ID)
	if err != nil {
		return nil, statusErr(ctx, err)
	}
	ids := make([]string, len(chunks))
	for _, c := range chunks {
		if int64(len(ids)) <= c.Index {
			grown := make([]string, c.Index+1)
			copy(grown, ids)
			ids = grown
		}
		ids[c.Index] = c.BlobID
	}
	return &rpc.ListChunksResponse{BlobIDs: ids}, nil
}

func (s *Server) GetBlobs(req *rpc.GetBlobsRequest, stream rpc.GetBlobsStream) error {
	content, err := s.fs.Blobs.GetMany(req.IDs)
	if err != nil {
		return statusErr(stream.Context(), err)
	}
	for id, data := range content {
		if err := stream.Send(&rpc.BlobChunk{ID: id, Content: data}); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOperation dispatches a single operation through the conflict-free
// Perform* path. For remove-* operations the response carries the
// entity as it existed immediately before removal, since the entity no
// longer exists afterward.
func (s *Server) ApplyOperation(ctx context.Context, req *rpc.ApplyOperationRequest) (*rpc.ApplyOperationResponse, error) {
	op, err := modifyop.Decode(req.Operation)
	if err != nil {
		return nil, statusErr(ctx, errs.New(errs.InvalidJournal, "decode operation: %v", err))
	}

	var preRemoval *model.DirEntity
	if op.Kind == modifyop.KindRemoveFile || op.Kind == modifyop.KindRemoveDirectory {
		preRemoval, err = s.fs.Entities.Query(op.ID)
		if err != nil {
			return nil, statusErr(ctx, err)
		}
	}

	id, err := opapply.ApplyOperation(s.fs, op)
	if err != nil {
		return nil, statusErr(ctx, err)
	}

	if preRemoval != nil {
		return &rpc.ApplyOperationResponse{Entity: *preRemoval}, nil
	}

	e, err := s.fs.Entities.Query(id)
	if err != nil {
		return nil, statusErr(ctx, err)
	}
	return &rpc.ApplyOperationResponse{Entity: *e}, nil
}

func (s *Server) ApplyJournal(ctx context.Context, req *rpc.ApplyJournalRequest) (*rpc.ApplyJournalResponse, error) {
	blobContent := make(map[string][]byte, len(req.Blobs))
	for _, b := range req.Blobs {
		blobContent[b.ID] = b.Content
	}

	outcome, err := s.fs.ApplyJournal(req.Operations, req.ChunksPerTempFile, blobContent)
	if err != nil {
		var conflictErr *serverfs.ConflictingFilesError
		var missingErr *serverfs.MissingBlobsError
		switch {
		case errors.As(err, &conflictErr):
			return &rpc.ApplyJournalResponse{
				Error: &rpc.JournalError{Kind: rpc.JournalErrorConflictingFiles, IDs: conflictErr.IDs},
			}, nil
		case errors.As(err, &missingErr):
			return &rpc.ApplyJournalResponse{
				Error: &rpc.JournalError{Kind: rpc.JournalErrorMissingBlobs, IDs: missingErr.IDs},
			}, nil
		default:
			return &rpc.ApplyJournalResponse{
				Error: &rpc.JournalError{Kind: rpc.JournalErrorInvalidJournal},
			}, nil
		}
	}

	return &rpc.ApplyJournalResponse{
		AssignedIDs: outcome.AssignedIDs,
		DirEntities: outcome.Entities,
	}, nil
}

func (s *Server) GetMissingBlobs(ctx context.Context, req *rpc.GetMissingBlobsRequest) (*rpc.GetMissingBlobsResponse, error) {
	missing, err := s.fs.Blobs.Missing(req.IDs)
	if err != nil {
		return nil, statusErr(ctx, err)
	}
	return &rpc.GetMissingBlobsResponse{BlobIDs: missing}, nil
}

// statusErr converts err into a gRPC error carrying the nimbusfs-status-code
// trailer, preserving the original *errs.Status for the client to
// recover via rpc.StatusFromTrailer.
func statusErr(ctx context.Context, err error) error {
	st, ok := errs.As(err)
	if !ok {
		st = errs.New(errs.DatabaseError, "%v", err)
	}
	if setErr := grpc.SetTrailer(ctx, rpc.SetTrailerStatus(ctx, st)); setErr != nil {
		log.Warn(fmt.Sprintf("failed to set status trailer: %v", setErr))
	}
	return st
}
