package syncclient

import (
	"github.com/nimbusfs/nimbusfs/pkg/blobstore"
	"github.com/nimbusfs/nimbusfs/pkg/entitystore"
	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
)

// entityTx is the subset of entitystore.Store / entitystore.Tx the
// local-apply functions below need; the single-operation pipeline uses
// an explicit *entitystore.Tx, everything else can run auto-commit.
type entityTx interface {
	Query(id string) (*model.DirEntity, error)
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
}

// localApplier implements opapply.PerformHandler against the local
// cache: every create assigns a fresh temp id (tx's owning Store was
// opened in client mode with the temp-id generator as its newID
// callback), and no version bumps beyond what the cache needs to stay
// internally consistent until the next server round trip overwrites it.
type localApplier struct {
	tx    entityTx
	blobs blobstore.Store
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

func (a *localApplier) PerformCreateFile(parentID string, ts model.Timespec, op *modifyop.CreateFile) (string, error) {
	if err := modifyop.ValidateName(op.Name); err != nil {
		return "", err
	}
	e, err := a.tx.CreateFile(parentID, op.Name, newStat(ts, op.FileType, op.Perm, op.Dev))
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

func (a *localApplier) PerformCreateSymlink(parentID string, ts model.Timespec, op *modifyop.CreateSymlink) (string, error) {
	if err := modifyop.ValidateName(op.Name); err != nil {
		return "", err
	}
	e, err := a.tx.CreateFile(parentID, op.Name, newStat(ts, model.Symlink, 0777, 0))
	if err != nil {
		return "", err
	}
	if err := a.writeAt(e.ID, ts, 0, []byte(op.Link)); err != nil {
		return "", err
	}
	return e.ID, nil
}

func (a *localApplier) PerformCreateDirectory(parentID string, ts model.Timespec, op *modifyop.CreateDirectory) (string, error) {
	if err := modifyop.ValidateName(op.Name); err != nil {
		return "", err
	}
	e, err := a.tx.CreateDirectory(parentID, op.Name, newStat(ts, model.Directory, op.Perm, 0))
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

func (a *localApplier) PerformRemoveFile(id string, ts model.Timespec, op *modifyop.RemoveFile) error {
	return a.tx.Remove(id)
}

func (a *localApplier) PerformRemoveDirectory(id string, ts model.Timespec, op *modifyop.RemoveDirectory) error {
	children, err := a.tx.ListChildren(id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return errs.New(errs.DirectoryNotEmpty, "directory %s is not empty", id)
	}
	return a.tx.Remove(id)
}

func (a *localApplier) PerformRename(id string, ts model.Timespec, op *modifyop.Rename) error {
	if err := modifyop.ValidateName(op.NewName); err != nil {
		return err
	}
	return a.tx.Rename(id, op.NewParent, op.NewName)
}

func (a *localApplier) PerformSetAttributes(id string, ts model.Timespec, op *modifyop.SetAttributes) error {
	e, err := a.tx.Query(id)
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
	if err := a.tx.SetAttributes(id, attrs, ts); err != nil {
		return err
	}
	if sizeApplies {
		return a.tx.Resize(id, *op.Size)
	}
	return nil
}

func (a *localApplier) PerformWrite(id string, ts model.Timespec, op *modifyop.Write) error {
	return a.writeAt(id, ts, op.Offset, op.Data)
}

// writeAt mirrors the server's re-chunking write path (pkg/serverfs),
// overlaying data onto only the blocks it touches.
func (a *localApplier) writeAt(id string, ts model.Timespec, offset int64, data []byte) error {
	e, err := a.tx.Query(id)
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

	chunks, err := a.tx.GetChunks(id)
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
			old, err := a.blobs.Get(blobID)
			if err != nil && !errs.Is(err, errs.BlobDoesNotExist) {
				return err
			}
			copy(buf, old)
		}
		loBound, hiBound := blockStart, blockStart+model.BlobSize
		if offset > loBound {
			loBound = offset
		}
		if end < hiBound {
			hiBound = end
		}
		if hiBound > loBound {
			copy(buf[loBound-blockStart:hiBound-blockStart], data[loBound-offset:hiBound-offset])
		}
		newID, err := a.blobs.Add(buf)
		if err != nil {
			return err
		}
		if err := a.tx.ReplaceChunk(id, idx, newID); err != nil {
			return err
		}
	}

	e.Stat.Size = newSize
	e.Stat.Blocks = (newSize + 511) / 512
	e.Stat.Mtim = ts
	e.Stat.Ctim = ts
	return a.tx.InsertOrReplace(e)
}
