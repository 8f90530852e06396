package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// callOpts selects the cbor codec for every call this package issues,
// so a Client never depends on grpc's default protobuf codec being
// reachable for types that were never generated from a .proto file.
func callOpts() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(CodecName)}
}

// Client is the thin wire-level stub over a grpc.ClientConn; it speaks
// exactly the six RPCs of ServiceDesc and nothing else. Higher-level
// concerns (id rewriting, retrying, local cache reconciliation) live in
// the synchronizer, not here.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an already-dialed conn.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// ListClientStream is the client-side handle for the List RPC.
type ListClientStream interface {
	Recv() (*ListElement, error)
	grpc.ClientStream
}

func (c *Client) List(ctx context.Context, req *ListRequest) (ListClientStream, error) {
	desc := &ServiceDesc.Streams[0]
	stream, err := c.conn.NewStream(ctx, desc, "/"+ServiceName+"/List", callOpts()...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &listClientStream{stream}, nil
}

type listClientStream struct {
	grpc.ClientStream
}

func (x *listClientStream) Recv() (*ListElement, error) {
	m := new(ListElement)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) ListChunks(ctx context.Context, req *ListChunksRequest) (*ListChunksResponse, error) {
	resp := new(ListChunksResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/ListChunks", req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBlobsClientStream is the client-side handle for the GetBlobs RPC.
type GetBlobsClientStream interface {
	Recv() (*BlobChunk, error)
	grpc.ClientStream
}

func (c *Client) GetBlobs(ctx context.Context, req *GetBlobsRequest) (GetBlobsClientStream, error) {
	desc := &ServiceDesc.Streams[1]
	stream, err := c.conn.NewStream(ctx, desc, "/"+ServiceName+"/GetBlobs", callOpts()...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &getBlobsClientStream{stream}, nil
}

type getBlobsClientStream struct {
	grpc.ClientStream
}

func (x *getBlobsClientStream) Recv() (*BlobChunk, error) {
	m := new(BlobChunk)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) ApplyOperation(ctx context.Context, req *ApplyOperationRequest) (*ApplyOperationResponse, error) {
	resp := new(ApplyOperationResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/ApplyOperation", req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ApplyJournal(ctx context.Context, req *ApplyJournalRequest) (*ApplyJournalResponse, error) {
	resp := new(ApplyJournalResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/ApplyJournal", req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetMissingBlobs(ctx context.Context, req *GetMissingBlobsRequest) (*GetMissingBlobsResponse, error) {
	resp := new(GetMissingBlobsResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/GetMissingBlobs", req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

// Dial creates a client connection to addr with opts. It adds no
// transport credentials of its own; the caller supplies them
// (nimbusfs-agent passes plain, non-TLS credentials). Encryption and
// access control are out of scope for this transport.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, opts...)
}
