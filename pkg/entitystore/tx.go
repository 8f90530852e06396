package entitystore

import (
	bolt "go.etcd.io/bbolt"

	"github.com/nimbusfs/nimbusfs/pkg/model"
)

// Tx is an explicit, scoped transaction handle. Callers must immediately
// `defer tx.Rollback()` after Begin(); Commit() makes the deferred
// Rollback a safe no-op, and any early return rolls back every mutation
// made through the handle.
type Tx struct {
	btx        *bolt.Tx
	store      *Store
	terminated bool
}

// Begin starts an explicit read-write transaction.
func (s *Store) Begin() (*Tx, error) {
	btx, err := s.db.Begin(true)
	if err != nil {
		return nil, err
	}
	return &Tx{btx: btx, store: s}, nil
}

// Commit commits the transaction. Safe to call at most once.
func (tx *Tx) Commit() error {
	if tx.terminated {
		return nil
	}
	tx.terminated = true
	return tx.btx.Commit()
}

// Rollback rolls back the transaction if it has not already been
// committed or rolled back. Safe to call unconditionally via defer.
func (tx *Tx) Rollback() error {
	if tx.terminated {
		return nil
	}
	tx.terminated = true
	return tx.btx.Rollback()
}

func (tx *Tx) Query(id string) (*model.DirEntity, error) { return queryTx(tx.btx, id) }

func (tx *Tx) QueryByName(parent, name string) (*model.DirEntity, error) {
	return queryByNameTx(tx.btx, parent, name)
}

func (tx *Tx) ListChildren(parent string) ([]*model.DirEntity, error) {
	return listChildrenTx(tx.btx, parent)
}

func (tx *Tx) Exists(id string) bool { return existsTx(tx.btx, id) }

func (tx *Tx) AnyChild(id string) bool { return anyChildTx(tx.btx, id) }

func (tx *Tx) GetChunks(fileID string) ([]model.Chunk, error) {
	return getChunksTx(tx.btx, fileID)
}

func (tx *Tx) InsertOrReplace(e *model.DirEntity) error { return insertOrReplaceTx(tx.btx, e) }

func (tx *Tx) CreateFile(parent, name string, stat model.Stat) (*model.DirEntity, error) {
	return createEntityTx(tx.btx, tx.store.newID, parent, name, stat)
}

func (tx *Tx) CreateDirectory(parent, name string, stat model.Stat) (*model.DirEntity, error) {
	stat.FileType = model.Directory
	return createEntityTx(tx.btx, tx.store.newID, parent, name, stat)
}

func (tx *Tx) Remove(id string) error { return removeTx(tx.btx, id) }

func (tx *Tx) Rename(id, newParent, newName string) error {
	return renameTx(tx.btx, id, newParent, newName)
}

func (tx *Tx) SetAttributes(id string, attrs AttrUpdate, ctim model.Timespec) error {
	return setAttributesTx(tx.btx, id, attrs, ctim)
}

func (tx *Tx) Resize(id string, size uint64) error { return resizeTx(tx.btx, id, size) }

func (tx *Tx) ReplaceChunk(fileID string, index int64, blobID string) error {
	return replaceChunkTx(tx.btx, fileID, index, blobID)
}

func (tx *Tx) TruncateChunks(fileID string, fromIndex int64) error {
	return truncateChunksTx(tx.btx, fileID, fromIndex)
}

func (tx *Tx) ChangeID(oldID, newID string) error { return changeIDTx(tx.btx, oldID, newID) }

func (tx *Tx) BumpVersions(id string, dirent, content bool) error {
	return bumpVersionsTx(tx.btx, id, dirent, content)
}

// --- client-only, valid only when the owning Store was opened with
// clientMode = true. ---

func (tx *Tx) AddJournalEntry(fileID string, operation []byte) (int64, error) {
	return addJournalEntryTx(tx.btx, fileID, operation)
}

func (tx *Tx) GetJournal() ([]JournalRecord, error) { return getJournalTx(tx.btx) }

func (tx *Tx) RemoveJournalItem(seq int64) error { return removeJournalItemTx(tx.btx, seq) }

func (tx *Tx) RemoveFileFromJournal(fileID string) error {
	return removeFileFromJournalTx(tx.btx, fileID)
}

func (tx *Tx) ClearJournal() error { return clearJournalTx(tx.btx) }

func (tx *Tx) AssignTempID(id string) (string, error) {
	return assignTempIDTx(tx.btx, tx.store.newID, id)
}

func (tx *Tx) UpdateRetrievedVersion(id string) error {
	return updateRetrievedVersionTx(tx.btx, id)
}

func (tx *Tx) RemoveRemainingFiles(parent string, keepIDs map[string]struct{}) error {
	return removeRemainingFilesTx(tx.btx, parent, keepIDs)
}
