package syncclient

import (
	"context"

	"github.com/nimbusfs/nimbusfs/pkg/entitystore"
	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/idgen"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
)

// FlushJournal replays every unflushed local operation against the
// server, reconciling temp ids to the ones the server assigns. It is a
// no-op when the journal is empty.
func (c *Client) FlushJournal(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushJournalLocked(ctx)
}

// flushJournalLocked runs the bounded-retry flush loop: each iteration
// submits the whole journal in one ApplyJournal call, and either
// succeeds, hits a structurally fatal error, or has to rebuild the
// journal around a reported conflict or missing blob and try again.
func (c *Client) flushJournalLocked(ctx context.Context) error {
	for attempt := 0; attempt < model.JournalMaxRetries; attempt++ {
		records, err := c.Entities.GetJournal()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			c.shouldFlushFlag.Store(false)
			return nil
		}

		ops := make([]*modifyop.Operation, len(records))
		rawOps := make([][]byte, len(records))
		for i, rec := range records {
			op, err := modifyop.Decode(rec.Operation)
			if err != nil {
				return errs.New(errs.InvalidJournal, "decode journal entry %d: %v", rec.Seq, err)
			}
			ops[i] = op
			rawOps[i] = rec.Operation
		}

		chunksPerTempFile, err := c.chunksForCreates(records, ops)
		if err != nil {
			return err
		}

		blobIDs := uniqueBlobIDs(chunksPerTempFile)
		blobs, err := c.blobsForJournal(ctx, blobIDs)
		if err != nil {
			return err
		}

		resp, err := c.RPC.ApplyJournal(ctx, &rpc.ApplyJournalRequest{
			Operations:        rawOps,
			ChunksPerTempFile: chunksPerTempFile,
			Blobs:             blobs,
		})
		if err != nil {
			return errs.New(errs.Offline, "apply_journal: %v", err)
		}

		if resp.Error == nil || resp.Error.Kind == rpc.JournalErrorNone {
			if err := c.reconcileJournal(resp); err != nil {
				return err
			}
			c.shouldFlushFlag.Store(false)
			return nil
		}

		switch resp.Error.Kind {
		case rpc.JournalErrorInvalidJournal:
			return errs.New(errs.InvalidJournal, "server rejected journal batch")
		case rpc.JournalErrorMissingBlobs:
			// The next iteration's blob collection picks these up.
			continue
		case rpc.JournalErrorConflictingFiles:
			if err := c.recreateConflicted(resp.Error.IDs); err != nil {
				return err
			}
			continue
		default:
			return errs.New(errs.InvalidJournal, "unknown journal error kind %d", resp.Error.Kind)
		}
	}
	return errs.New(errs.Offline, "journal flush did not converge after %d attempts", model.JournalMaxRetries)
}

// chunksForCreates builds the positionally-aligned chunk-list argument
// ApplyJournal expects: one entry per create operation, in submission
// order, holding the ordered blob ids composing that temp file's
// content right now.
func (c *Client) chunksForCreates(records []entitystore.JournalRecord, ops []*modifyop.Operation) ([][]string, error) {
	var out [][]string
	for i, op := range ops {
		if !isCreateKind(op.Kind) {
			continue
		}
		chunks, err := c.Entities.GetChunks(records[i].FileID)
		if err != nil {
			return nil, err
		}
		byIndex := make(map[int64]string, len(chunks))
		var maxIdx int64 = -1
		for _, ch := range chunks {
			byIndex[ch.Index] = ch.BlobID
			if ch.Index > maxIdx {
				maxIdx = ch.Index
			}
		}
		ids := make([]string, maxIdx+1)
		for idx := int64(0); idx <= maxIdx; idx++ {
			ids[idx] = byIndex[idx]
		}
		out = append(out, ids)
	}
	return out, nil
}

func isCreateKind(k modifyop.Kind) bool {
	switch k {
	case modifyop.KindCreateFile, modifyop.KindCreateSymlink, modifyop.KindCreateDirectory:
		return true
	default:
		return false
	}
}

func uniqueBlobIDs(chunksPerTempFile [][]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ids := range chunksPerTempFile {
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// blobsForJournal asks the server which of blobIDs it is missing and
// returns their content from the local blob store.
func (c *Client) blobsForJournal(ctx context.Context, blobIDs []string) ([]rpc.BlobChunk, error) {
	if len(blobIDs) == 0 {
		return nil, nil
	}
	resp, err := c.RPC.GetMissingBlobs(ctx, &rpc.GetMissingBlobsRequest{IDs: blobIDs})
	if err != nil {
		return nil, err
	}
	if len(resp.BlobIDs) == 0 {
		return nil, nil
	}
	content, err := c.Blobs.GetMany(resp.BlobIDs)
	if err != nil {
		return nil, err
	}
	out := make([]rpc.BlobChunk, 0, len(content))
	for id, data := range content {
		out = append(out, rpc.BlobChunk{ID: id, Content: data})
	}
	return out, nil
}

// reconcileJournal applies a successful ApplyJournal response to the
// local cache: temp ids are rewritten to their assigned authoritative
// ids, every returned entity overwrites the local copy, the journal is
// cleared and the temp-id generator resets to zero.
func (c *Client) reconcileJournal(resp *rpc.ApplyJournalResponse) error {
	tx, err := c.Entities.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for ord, assigned := range resp.AssignedIDs {
		tempID := idgen.FormatTempID(int64(ord))
		if tempID == assigned {
			continue
		}
		if err := tx.ChangeID(tempID, assigned); err != nil {
			return err
		}
	}
	for i := range resp.DirEntities {
		if err := tx.InsertOrReplace(&resp.DirEntities[i]); err != nil {
			return err
		}
	}
	if err := tx.ClearJournal(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.tempIDs.Reset()
	return nil
}

// recreateConflicted rebuilds the journal around every id that lost a
// deferred version check: the entity is given a fresh temp id and
// re-submitted as a create followed by a reset-attributes operation
// carrying its current stat, dropping whatever journal rows previously
// targeted it.
func (c *Client) recreateConflicted(ids []string) error {
	tx, err := c.Entities.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		e, err := tx.Query(id)
		if err != nil {
			if errs.Is(err, errs.FileDoesNotExist) {
				continue
			}
			return err
		}
		if err := tx.RemoveFileFromJournal(id); err != nil {
			return err
		}

		newTempID, err := tx.AssignTempID(id)
		if err != nil {
			return err
		}

		createOp, err := recreateOp(e)
		if err != nil {
			return err
		}
		encodedCreate, err := modifyop.Encode(createOp)
		if err != nil {
			return err
		}
		if _, err := tx.AddJournalEntry(newTempID, encodedCreate); err != nil {
			return err
		}

		attrsOp := resetAttributesOp(e)
		attrsOp.ID = newTempID
		encodedAttrs, err := modifyop.Encode(attrsOp)
		if err != nil {
			return err
		}
		if _, err := tx.AddJournalEntry(newTempID, encodedAttrs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// recreateOp builds the create-kind operation re-establishing e under
// its existing parent and name; the header ID is e's parent for all
// three variants. The journal row the caller files it under carries the
// new temp id.
func recreateOp(e *model.DirEntity) (*modifyop.Operation, error) {
	switch e.Stat.FileType {
	case model.Directory:
		return modifyop.NewCreateDirectory(e.Parent, e.Stat.Mtim, 0, 0, e.Name, e.Stat.Mode), nil
	case model.Symlink:
		return modifyop.NewCreateSymlink(e.Parent, e.Stat.Mtim, 0, 0, e.Name, ""), nil
	default:
		return modifyop.NewCreateFile(e.Parent, e.Stat.Mtim, 0, 0, e.Name, e.Stat.FileType, e.Stat.Mode, e.Stat.Dev), nil
	}
}

// resetAttributesOp carries e's full stat so the server-side copy of
// the recreated entity matches what the client had before the conflict.
func resetAttributesOp(e *model.DirEntity) *modifyop.Operation {
	perm := e.Stat.Mode
	uid := e.Stat.UID
	gid := e.Stat.GID
	atim := e.Stat.Atim
	mtim := e.Stat.Mtim
	attrs := modifyop.SetAttributes{Perm: &perm, UID: &uid, GID: &gid, Atim: &atim, Mtim: &mtim}
	if e.Stat.FileType == model.RegularFile {
		size := e.Stat.Size
		attrs.Size = &size
	}
	return modifyop.NewSetAttributes(e.ID, e.Stat.Mtim, 0, 0, attrs)
}
