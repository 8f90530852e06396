package serverfs

import (
	"github.com/nimbusfs/nimbusfs/pkg/blobstore"
	"github.com/nimbusfs/nimbusfs/pkg/entitystore"
	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
)

// entityTx is the subset of entitystore.Store / entitystore.Tx that the
// version-bump and write-chunking logic needs; both the auto-commit
// store and an explicit transaction satisfy it, so FS (one
// RPC, one auto-commit call per op) and deferredTx (a whole
// ApplyJournal batch, one explicit transaction) share the same code.
type entityTx interface {
	Query(id string) (*model.DirEntity, error)
	QueryByName(parent, name string) (*model.DirEntity, error)
	ListChildren(parent string) ([]*model.DirEntity, error)
	GetChunks(fileID string) ([]model.Chunk, error)
	InsertOrReplace(e *model.DirEntity) error
	CreateFile(parent, name string, stat model.Stat) (*model.DirEntity, error)
	CreateDirectory(parent, name string, stat model.Stat) (*model.DirEntity, error)
	Remove(id string) error
	Rename(id, newParent, newName string) error
	SetAttributes(id string, attrs entitystore.AttrUpdate, ctim model.Timespec) error
	Resize(id string, size uint64) error
	ReplaceChunk(fileID string, index int64, blobID string) error
	TruncateChunks(fileID string, fromIndex int64) error
	ChangeID(oldID, newID string) error
	BumpVersions(id string, dirent, content bool) error
	RemoveRemainingFiles(parent string, keepIDs map[string]struct{}) error
}

// FS is the authoritative server filesystem: version-bump rules
// applied through PerformHandler for the conflict-free ApplyOperation
// RPC.
type FS struct {
	Entities *entitystore.Store
	Blobs    blobstore.Store
}

// New builds a server filesystem over an already-open entity and blob
// store pair.
func New(entities *entitystore.Store, blobs blobstore.Store) *FS {
	return &FS{Entities: entities, Blobs: blobs}
}

func newStat(ts model.Timespec, fileType model.FileType, perm uint32, dev uint64) model.Stat {
	return model.Stat{
		FileType: fileType,
		Mode:     perm,
		Dev:      dev,
		Nlink:    1,
		Atim:     ts,
		Mtim:     ts,
		Ctim:     ts,
	}
}

func (f *FS) PerformCreateFile(parentID string, ts model.Timespec, op *modifyop.CreateFile) (string, error) {
	return createFile(f.Entities, f.Blobs, parentID, ts, op)
}

func (f *FS) PerformCreateSymlink(parentID string, ts model.Timespec, op *modifyop.CreateSymlink) (string, error) {
	return createSymlink(f.Entities, f.Blobs, parentID, ts, op)
}

func (f *FS) PerformCreateDirectory(parentID string, ts model.Timespec, op *modifyop.CreateDirectory) (string, error) {
	return createDirectory(f.Entities, parentID, ts, op)
}

func (f *FS) PerformRemoveFile(id string, ts model.Timespec, op *modifyop.RemoveFile) error {
	return removeEntry(f.Entities, id)
}

func (f *FS) PerformRemoveDirectory(id string, ts model.Timespec, op *modifyop.RemoveDirectory) error {
	return removeDirectory(f.Entities, id)
}

func (f *FS) PerformRename(id string, ts model.Timespec, op *modifyop.Rename) error {
	return renameEntry(f.Entities, id, ts, op.NewParent, op.NewName)
}

func (f *FS) PerformSetAttributes(id string, ts model.Timespec, op *modifyop.SetAttributes) error {
	return setAttributes(f.Entities, id, ts, op)
}

func (f *FS) PerformWrite(id string, ts model.Timespec, op *modifyop.Write) error {
	return writeAt(f.Entities, f.Blobs, id, ts, op.Offset, op.Data)
}

// --- shared mutation bodies, each implementing one §4.8.1 version-bump
// rule against any entityTx. ---

func createFile(tx entityTx, blobs blobstore.Store, parentID string, ts model.Timespec, op *modifyop.CreateFile) (string, error) {
	if err := modifyop.ValidateName(op.Name); err != nil {
		return "", err
	}
	parent, err := tx.Query(parentID)
	if err != nil {
		return "", err
	}
	if parent.Stat.FileType != model.Directory {
		return "", errs.New(errs.FileDoesNotExist, "parent %s is not a directory", parentID)
	}
	e, err := tx.CreateFile(parentID, op.Name, newStat(ts, op.FileType, op.Perm, op.Dev))
	if err != nil {
		return "", err
	}
	if err := tx.BumpVersions(parentID, false, true); err != nil {
		return "", err
	}
	return e.ID, nil
}

func createSymlink(tx entityTx, blobs blobstore.Store, parentID string, ts model.Timespec, op *modifyop.CreateSymlink) (string, error) {
	if err := modifyop.ValidateName(op.Name); err != nil {
		return "", err
	}
	e, err := tx.CreateFile(parentID, op.Name, newStat(ts, model.Symlink, 0777, 0))
	if err != nil {
		return "", err
	}
	if err := tx.BumpVersions(parentID, false, true); err != nil {
		return "", err
	}
	// Spec I5: a symlink's target is stored as ordinary file content.
	if err := writeAt(tx, blobs, e.ID, ts, 0, []byte(op.Link)); err != nil {
		return "", err
	}
	return e.ID, nil
}

func createDirectory(tx entityTx, parentID string, ts model.Timespec, op *modifyop.CreateDirectory) (string, error) {
	if err := modifyop.ValidateName(op.Name); err != nil {
		return "", err
	}
	e, err := tx.CreateDirectory(parentID, op.Name, newStat(ts, model.Directory, op.Perm, 0))
	if err != nil {
		return "", err
	}
	if err := tx.BumpVersions(parentID, false, true); err != nil {
		return "", err
	}
	return e.ID, nil
}

func removeEntry(tx entityTx, id string) error {
	e, err := tx.Query(id)
	if err != nil {
		return err
	}
	if err := tx.Remove(id); err != nil {
		return err
	}
	return tx.BumpVersions(e.Parent, false, true)
}

func removeDirectory(tx entityTx, id string) error {
	children, err := tx.ListChildren(id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return errs.New(errs.DirectoryNotEmpty, "directory %s is not empty", id)
	}
	return removeEntry(tx, id)
}

func renameEntry(tx entityTx, id string, ts model.Timespec, newParent, newName string) error {
	if err := modifyop.ValidateName(newName); err != nil {
		return err
	}
	e, err := tx.Query(id)
	if err != nil {
		return err
	}
	oldParent := e.Parent
	if err := tx.Rename(id, newParent, newName); err != nil {
		return err
	}
	if err := tx.BumpVersions(oldParent, false, true); err != nil {
		return err
	}
	if newParent != oldParent {
		if err := tx.BumpVersions(newParent, false, true); err != nil {
			return err
		}
	}
	return tx.BumpVersions(id, true, false)
}

func setAttributes(tx entityTx, id string, ts model.Timespec, op *modifyop.SetAttributes) error {
	e, err := tx.Query(id)
	if err != nil {
		return err
	}
	attrs := entitystore.AttrUpdate{
		Perm: op.Perm,
		UID:  op.UID,
		GID:  op.GID,
		Atim: op.Atim,
		Mtim: op.Mtim,
	}
	sizeApplies := op.Size != nil && e.Stat.FileType == model.RegularFile
	if sizeApplies {
		attrs.Size = op.Size
	}
	if err := tx.SetAttributes(id, attrs, ts); err != nil {
		return err
	}
	if sizeApplies {
		if err := tx.Resize(id, *op.Size); err != nil {
			return err
		}
		return tx.BumpVersions(id, true, true)
	}
	return tx.BumpVersions(id, true, false)
}

// writeAt applies a byte-range write, re-chunking only the blocks that
// overlap [offset, offset+len(data)) and leaving every other chunk
// reference untouched.
func writeAt(tx entityTx, blobs blobstore.Store, id string, ts model.Timespec, offset int64, data []byte) error {
	e, err := tx.Query(id)
	if err != nil {
		return err
	}
	end := offset + int64(len(data))
	newSize := e.Stat.Size
	if uint64(end) > newSize {
		newSize = uint64(end)
	}

	firstChunk := offset / model.BlobSize
	lastChunk := (end - 1) / model.BlobSize
	if len(data) == 0 {
		lastChunk = firstChunk - 1
	}

	chunks, err := tx.GetChunks(id)
	if err != nil {
		return err
	}
	existing := make(map[int64]string, len(chunks))
	for _, c := range chunks {
		existing[c.Index] = c.BlobID
	}

	for idx := firstChunk; idx <= lastChunk; idx++ {
		blockStart := idx * model.BlobSize
		buf := make([]byte, model.BlobSize)
		if blobID, ok := existing[idx]; ok && blobID != "" {
			old, err := blobs.Get(blobID)
			if err != nil && !errs.Is(err, errs.BlobDoesNotExist) {
				return err
			}
			copy(buf, old)
		}
		// Overlay the write's contribution to this block.
		loBound := blockStart
		hiBound := blockStart + model.BlobSize
		if offset > loBound {
			loBound = offset
		}
		if end < hiBound {
			hiBound = end
		}
		if hiBound > loBound {
			copy(buf[loBound-blockStart:hiBound-blockStart], data[loBound-offset:hiBound-offset])
		}
		newID, err := blobs.Add(buf)
		if err != nil {
			return err
		}
		if err := tx.ReplaceChunk(id, idx, newID); err != nil {
			return err
		}
	}

	e.Stat.Size = newSize
	e.Stat.Blocks = (newSize + 511) / 512
	e.Stat.Mtim = ts
	e.Stat.Ctim = ts
	if err := tx.InsertOrReplace(e); err != nil {
		return err
	}
	return tx.BumpVersions(id, true, true)
}
