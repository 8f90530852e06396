package syncclient

import (
	"context"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
	"github.com/nimbusfs/nimbusfs/pkg/opapply"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
)

// execute runs the single-operation pipeline for op: apply it against
// the local cache, journal it, and (when online) submit it to the
// server immediately, reconciling the cache's temp id with whatever
// authoritative id the server assigns.
func (c *Client) execute(ctx context.Context, op *modifyop.Operation) (*model.DirEntity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executeLocked(ctx, op)
}

func (c *Client) executeLocked(ctx context.Context, op *modifyop.Operation) (*model.DirEntity, error) {
	if c.ShouldFlushJournal() {
		if err := c.flushJournalLocked(ctx); err != nil {
			return nil, err
		}
	}

	tx, err := c.Entities.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	applier := &localApplier{tx: tx, blobs: c.Blobs}
	newID, err := opapply.ApplyOperation(applier, op)
	if err != nil {
		return nil, err
	}

	encoded, err := modifyop.Encode(op)
	if err != nil {
		return nil, err
	}
	seq, err := tx.AddJournalEntry(newID, encoded)
	if err != nil {
		return nil, err
	}

	if c.Offline() {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return c.Entities.Query(newID)
	}

	resp, err := c.RPC.ApplyOperation(ctx, &rpc.ApplyOperationRequest{Operation: encoded})
	if err != nil {
		// Transport failure: leave the journal entry for the deferred
		// replay path and surface Offline, matching the server-reachable
		// but request-failed case.
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, errs.New(errs.Offline, "apply_operation: %v", err)
	}

	if err := tx.RemoveJournalItem(seq); err != nil {
		return nil, err
	}
	serverID := resp.Entity.ID
	if serverID != newID {
		if err := tx.ChangeID(newID, serverID); err != nil {
			return nil, err
		}
	}
	entity := resp.Entity
	// The op that just landed came from this client's own chunks, so the
	// cache is current for this entity even though the authoritative
	// response carries a zero retrieved_version.
	entity.RetrievedVersion = entity.ContentVersion
	if err := tx.InsertOrReplace(&entity); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &entity, nil
}
