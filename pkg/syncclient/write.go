package syncclient

import (
	"context"

	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
	"github.com/nimbusfs/nimbusfs/pkg/writebuffer"
)

// Open allocates a write-buffer handle for id.
func (c *Client) Open(id string) writebuffer.Handle {
	return c.OpenFiles.Open(id)
}

// Close drops fh without flushing; callers must Flush first to avoid
// losing pending writes.
func (c *Client) Close(fh writebuffer.Handle) error {
	return c.OpenFiles.Close(fh)
}

// Write buffers a pending write against fh, flushing immediately if the
// buffer has crossed model.FlushThreshold.
func (c *Client) Write(ctx context.Context, fh writebuffer.Handle, offset int64, data []byte) error {
	full, err := c.OpenFiles.Write(fh, writebuffer.Op{Offset: offset, Data: data})
	if err != nil {
		return err
	}
	if full {
		return c.Flush(ctx, fh)
	}
	return nil
}

// Flush drains fh's coalesced pending writes and applies each as a
// Write modify-operation through the single-operation pipeline.
func (c *Client) Flush(ctx context.Context, fh writebuffer.Handle) error {
	entityID, ops, err := c.OpenFiles.Flush(fh)
	if err != nil {
		return err
	}
	for _, pending := range ops {
		c.mu.Lock()
		dv, cv := c.versionsOf(entityID)
		op := modifyop.NewWrite(entityID, model.Now(), dv, cv, pending.Offset, pending.Data)
		_, err := c.executeLocked(ctx, op)
		c.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// FlushAll flushes and closes every open file, in ascending handle
// order. Used on the synchronizer's shutdown path.
func (c *Client) FlushAll(ctx context.Context) error {
	for _, result := range c.OpenFiles.CloseAll() {
		entityID := result.EntityID
		for _, pending := range result.Ops {
			c.mu.Lock()
			dv, cv := c.versionsOf(entityID)
			op := modifyop.NewWrite(entityID, model.Now(), dv, cv, pending.Offset, pending.Data)
			_, err := c.executeLocked(ctx, op)
			c.mu.Unlock()
			if err != nil {
				return err
			}
		}
	}
	return nil
}
