package syncclient

import (
	"context"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
)

// UpdateChunks refreshes id's chunk list from the server, replacing
// local entries by index and advancing retrieved_version to
// content_version. Offline, it succeeds only when the file is already
// up to date or empty.
func (c *Client) UpdateChunks(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.Entities.Query(id)
	if err != nil {
		return err
	}

	if c.Offline() {
		if e.Stat.Size == 0 || e.UpToDate() {
			return nil
		}
		return errs.New(errs.Offline, "chunks for %s are not cached locally", id)
	}

	resp, err := c.RPC.ListChunks(ctx, &rpc.ListChunksRequest{ID: id})
	if err != nil {
		return err
	}

	tx, err := c.Entities.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.TruncateChunks(id, 0); err != nil {
		return err
	}
	for idx, blobID := range resp.BlobIDs {
		if blobID == "" {
			continue
		}
		if err := tx.ReplaceChunk(id, int64(idx), blobID); err != nil {
			return err
		}
	}

	e.RetrievedVersion = e.ContentVersion
	if err := tx.InsertOrReplace(e); err != nil {
		return err
	}
	return tx.Commit()
}
