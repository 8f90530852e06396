package serverfs

import (
	"github.com/nimbusfs/nimbusfs/pkg/blobstore"
	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
)

// deferredTx implements opapply.DeferredHandler against a single
// entityTx (in practice an entitystore.Tx shared by a whole
// ApplyJournal batch), applying the deferred conflict policy.
type deferredTx struct {
	tx    entityTx
	blobs blobstore.Store
}

// newDeferredTx wraps tx for use inside ApplyJournal.
func newDeferredTx(tx entityTx, blobs blobstore.Store) *deferredTx {
	return &deferredTx{tx: tx, blobs: blobs}
}

func (d *deferredTx) DeferredCreateFile(parentID string, ts model.Timespec, _, _ int64, op *modifyop.CreateFile) (string, error) {
	if err := modifyop.ValidateName(op.Name); err != nil {
		return "", err
	}
	name, err := resolveConflictedName(d.tx, parentID, op.Name, ts)
	if err != nil {
		return "", err
	}
	return createFile(d.tx, d.blobs, parentID, ts, &modifyop.CreateFile{
		Name: name, FileType: op.FileType, Perm: op.Perm, Dev: op.Dev,
	})
}

func (d *deferredTx) DeferredCreateSymlink(parentID string, ts model.Timespec, _, _ int64, op *modifyop.CreateSymlink) (string, error) {
	if err := modifyop.ValidateName(op.Name); err != nil {
		return "", err
	}
	name, err := resolveConflictedName(d.tx, parentID, op.Name, ts)
	if err != nil {
		return "", err
	}
	return createSymlink(d.tx, d.blobs, parentID, ts, &modifyop.CreateSymlink{Name: name, Link: op.Link})
}

func (d *deferredTx) DeferredCreateDirectory(parentID string, ts model.Timespec, _, _ int64, op *modifyop.CreateDirectory) (string, error) {
	if err := modifyop.ValidateName(op.Name); err != nil {
		return "", err
	}
	name, err := resolveConflictedName(d.tx, parentID, op.Name, ts)
	if err != nil {
		return "", err
	}
	return createDirectory(d.tx, parentID, ts, &modifyop.CreateDirectory{Name: name, Perm: op.Perm})
}

func (d *deferredTx) DeferredRemoveFile(id string, _ model.Timespec, _, _ int64, _ *modifyop.RemoveFile) error {
	return removeEntry(d.tx, id)
}

func (d *deferredTx) DeferredRemoveDirectory(id string, _ model.Timespec, _, _ int64, _ *modifyop.RemoveDirectory) error {
	return removeDirectory(d.tx, id)
}

func (d *deferredTx) DeferredRename(id string, ts model.Timespec, _, _ int64, op *modifyop.Rename) error {
	name, err := resolveConflictedName(d.tx, op.NewParent, op.NewName, ts)
	if err != nil {
		return err
	}
	return renameEntry(d.tx, id, ts, op.NewParent, name)
}

func (d *deferredTx) DeferredSetAttributes(id string, ts model.Timespec, _, contentVersion int64, op *modifyop.SetAttributes) error {
	e, err := d.tx.Query(id)
	if err != nil {
		return err
	}
	if op.Size != nil && e.Stat.FileType == model.RegularFile {
		if err := checkContentVersion(id, contentVersion, e.ContentVersion); err != nil {
			return err
		}
	}
	return setAttributes(d.tx, id, ts, op)
}

func (d *deferredTx) DeferredWrite(id string, ts model.Timespec, _, contentVersion int64, op *modifyop.Write) error {
	e, err := d.tx.Query(id)
	if err != nil {
		return err
	}
	if err := checkContentVersion(id, contentVersion, e.ContentVersion); err != nil {
		return err
	}
	return writeAt(d.tx, d.blobs, id, ts, op.Offset, op.Data)
}

// checkContentVersion does a three-way compare of observed against the
// stored content_version: equal applies, older conflicts, newer is an
// invalid submission.
func checkContentVersion(id string, observed, stored int64) error {
	switch {
	case observed == stored:
		return nil
	case observed < stored:
		return errs.New(errs.ConflictedFile, "id %s", id)
	default:
		return errs.New(errs.InvalidContentVersion, "id %s observed %d stored %d", id, observed, stored)
	}
}
