package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
)

// defaultCallTimeout bounds any call that does not carry its own
// deadline through the context passed in by the caller.
const defaultCallTimeout = 30 * time.Second

// Client wraps the wire-level rpc.Client with convenience methods that
// decode/encode modifyop.Operation and drain streaming RPCs into plain
// slices, for callers (ad-hoc tooling) that want a
// synchronous request/response shape rather than the synchronizer's
// batched pipeline.
type Client struct {
	conn *grpc.ClientConn
	rpc  *rpc.Client
}

// New dials addr with plain (non-TLS) transport credentials, the same
// credentials nimbusfs-agent passes to pkg/rpc.Dial.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{conn: conn, rpc: rpc.NewClient(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// List returns every child entity of id.
func (c *Client) List(ctx context.Context, id string) ([]model.DirEntity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	stream, err := c.rpc.List(ctx, &rpc.ListRequest{ID: id})
	if err != nil {
		return nil, err
	}

	var entities []model.DirEntity
	for {
		elem, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entities = append(entities, elem.Entity)
	}
	return entities, nil
}

// ListChunks returns the ordered blob ids backing a file.
func (c *Client) ListChunks(ctx context.Context, id string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	resp, err := c.rpc.ListChunks(ctx, &rpc.ListChunksRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.BlobIDs, nil
}

// GetBlobs fetches the content of the given blob ids, keyed by id.
func (c *Client) GetBlobs(ctx context.Context, ids []string) (map[string][]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	stream, err := c.rpc.GetBlobs(ctx, &rpc.GetBlobsRequest{IDs: ids})
	if err != nil {
		return nil, err
	}

	content := make(map[string][]byte, len(ids))
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		content[chunk.ID] = chunk.Content
	}
	return content, nil
}

// GetMissingBlobs asks the server which of ids it does not already have.
func (c *Client) GetMissingBlobs(ctx context.Context, ids []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	resp, err := c.rpc.GetMissingBlobs(ctx, &rpc.GetMissingBlobsRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	return resp.BlobIDs, nil
}

// ApplyOperation encodes op and applies it immediately, outside of any
// journal batch. Returns the resulting authoritative entity (for
// remove-* operations, the entity as it existed immediately before
// removal).
func (c *Client) ApplyOperation(ctx context.Context, op *modifyop.Operation) (*model.DirEntity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	encoded, err := modifyop.Encode(op)
	if err != nil {
		return nil, fmt.Errorf("client: encode operation: %w", err)
	}

	resp, err := c.rpc.ApplyOperation(ctx, &rpc.ApplyOperationRequest{Operation: encoded})
	if err != nil {
		return nil, err
	}
	return &resp.Entity, nil
}
