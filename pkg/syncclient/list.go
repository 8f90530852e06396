package syncclient

import (
	"context"
	"io"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
)

// List returns the children of id, refreshing the cache from the
// server when online.
func (c *Client) List(ctx context.Context, id string) ([]*model.DirEntity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parent, err := c.Entities.Query(id)
	if err != nil {
		return nil, err
	}

	if c.Offline() {
		if parent.RetrievedVersion == 0 {
			return nil, errs.New(errs.Offline, "directory %s was never fetched", id)
		}
		return c.Entities.ListChildren(id)
	}

	stream, err := c.RPC.List(ctx, &rpc.ListRequest{ID: id})
	if err != nil {
		return nil, err
	}

	tx, err := c.Entities.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	keep := make(map[string]struct{})
	var children []*model.DirEntity
	for {
		elem, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		e := elem.Entity
		if err := tx.InsertOrReplace(&e); err != nil {
			return nil, err
		}
		keep[e.ID] = struct{}{}
		children = append(children, &e)
	}

	parent.RetrievedVersion = parent.ContentVersion
	if err := tx.InsertOrReplace(parent); err != nil {
		return nil, err
	}
	if err := tx.RemoveRemainingFiles(id, keep); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return children, nil
}

// Query consults the local cache only.
func (c *Client) Query(id string) (*model.DirEntity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Entities.Query(id)
}

// QueryByName consults the local cache only.
func (c *Client) QueryByName(parent, name string) (*model.DirEntity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Entities.QueryByName(parent, name)
}
