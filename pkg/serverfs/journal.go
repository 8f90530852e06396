package serverfs

import (
	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/idgen"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
	"github.com/nimbusfs/nimbusfs/pkg/opapply"
)

// ConflictingFilesError reports the ids that lost a deferred
// content-version check during an ApplyJournal batch.
type ConflictingFilesError struct {
	IDs []string
}

func (e *ConflictingFilesError) Error() string {
	return "serverfs: conflicting files"
}

// MissingBlobsError reports blob ids referenced by the batch's chunk
// lists that were neither supplied in the request nor already present
// in the blob store.
type MissingBlobsError struct {
	IDs []string
}

func (e *MissingBlobsError) Error() string {
	return "serverfs: missing blobs"
}

// JournalOutcome is the successful result of ApplyJournal.
type JournalOutcome struct {
	AssignedIDs []string
	Entities    []model.DirEntity
}

func isCreateKind(k modifyop.Kind) bool {
	switch k {
	case modifyop.KindCreateFile, modifyop.KindCreateSymlink, modifyop.KindCreateDirectory:
		return true
	default:
		return false
	}
}

// ApplyJournal replays a client's journal batch in one transaction,
// rewriting temp ids to the ids this call assigns
// as it goes, collecting (not short-circuiting on) per-id conflicts,
// and only installing chunk lists / persisting blobs once the whole
// batch is conflict-free.
func (f *FS) ApplyJournal(rawOps [][]byte, chunksPerTempFile [][]string, blobContent map[string][]byte) (*JournalOutcome, error) {
	tx, err := f.Entities.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dtx := newDeferredTx(tx, f.Blobs)

	var assignedIDs []string
	var conflicts []string
	var touched []string
	seen := make(map[string]struct{})

	markTouched := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		touched = append(touched, id)
	}

	for _, raw := range rawOps {
		op, err := modifyop.Decode(raw)
		if err != nil {
			return nil, errs.New(errs.InvalidJournal, "decode operation: %v", err)
		}
		if err := rewriteTempID(op, assignedIDs); err != nil {
			return nil, errs.New(errs.InvalidJournal, "%v", err)
		}

		resultID, err := opapply.ApplyOperationDeferred(dtx, op)
		if err != nil {
			if errs.Is(err, errs.ConflictedFile) {
				conflicts = append(conflicts, op.ID)
				continue
			}
			return nil, errs.New(errs.InvalidJournal, "apply operation: %v", err)
		}

		if isCreateKind(op.Kind) {
			assignedIDs = append(assignedIDs, resultID)
		}
		markTouched(resultID)
	}

	if len(conflicts) > 0 {
		return nil, &ConflictingFilesError{IDs: conflicts}
	}

	if len(assignedIDs) != len(chunksPerTempFile) {
		return nil, errs.New(errs.InvalidJournal,
			"%d creates but %d chunk lists", len(assignedIDs), len(chunksPerTempFile))
	}

	if missing := missingBlobIDs(f.Blobs, blobContent, chunksPerTempFile); len(missing) > 0 {
		return nil, &MissingBlobsError{IDs: missing}
	}

	for _, content := range blobContent {
		if _, err := f.Blobs.Add(content); err != nil {
			return nil, err
		}
	}

	for i, blobIDs := range chunksPerTempFile {
		fileID := assignedIDs[i]
		if err := tx.TruncateChunks(fileID, 0); err != nil {
			return nil, err
		}
		for idx, blobID := range blobIDs {
			if err := tx.ReplaceChunk(fileID, int64(idx), blobID); err != nil {
				return nil, err
			}
		}
	}

	entities := make([]model.DirEntity, 0, len(touched))
	for _, id := range touched {
		e, err := tx.Query(id)
		if err != nil {
			if errs.Is(err, errs.FileDoesNotExist) {
				// Removed within this same batch; nothing to report.
				continue
			}
			return nil, err
		}
		entities = append(entities, *e)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &JournalOutcome{AssignedIDs: assignedIDs, Entities: entities}, nil
}

// rewriteTempID resolves op's header id (and, for Rename, its new
// parent) from the client-local temp-id space to the ids this batch
// has assigned so far, by ordinal position.
func rewriteTempID(op *modifyop.Operation, assignedIDs []string) error {
	resolved, err := resolveOne(op.ID, assignedIDs)
	if err != nil {
		return err
	}
	op.ID = resolved

	if op.Kind == modifyop.KindRename {
		resolvedParent, err := resolveOne(op.Rename.NewParent, assignedIDs)
		if err != nil {
			return err
		}
		op.Rename.NewParent = resolvedParent
	}
	return nil
}

func resolveOne(id string, assignedIDs []string) (string, error) {
	if !idgen.IsTempID(id) {
		return id, nil
	}
	ord, err := idgen.TempOrdinal(id)
	if err != nil {
		return "", err
	}
	if ord < 0 || int(ord) >= len(assignedIDs) {
		return "", errs.New(errs.InvalidJournal, "temp id %s has no assignment yet", id)
	}
	return assignedIDs[ord], nil
}

// missingBlobIDs returns, among every blob id chunksPerTempFile
// references, those absent from both blobContent and the store.
func missingBlobIDs(blobs interface {
	Missing(ids []string) ([]string, error)
}, blobContent map[string][]byte, chunksPerTempFile [][]string) []string {
	need := make(map[string]struct{})
	for _, ids := range chunksPerTempFile {
		for _, id := range ids {
			if _, ok := blobContent[id]; ok {
				continue
			}
			need[id] = struct{}{}
		}
	}
	if len(need) == 0 {
		return nil
	}
	ids := make([]string, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	missing, err := blobs.Missing(ids)
	if err != nil {
		return ids
	}
	return missing
}
