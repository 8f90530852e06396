package entitystore

import (
	bolt "go.etcd.io/bbolt"

	"github.com/nimbusfs/nimbusfs/pkg/model"
)

// Store-level methods auto-commit: each opens its own transaction,
// applies the mutation and commits. Multi-step pipelines (the operation
// applier, journal flush/replay) use Begin()/Tx instead.

func (s *Store) Query(id string) (*model.DirEntity, error) {
	var out *model.DirEntity
	err := s.db.View(func(btx *bolt.Tx) error {
		var err error
		out, err = queryTx(btx, id)
		return err
	})
	return out, err
}

func (s *Store) QueryByName(parent, name string) (*model.DirEntity, error) {
	var out *model.DirEntity
	err := s.db.View(func(btx *bolt.Tx) error {
		var err error
		out, err = queryByNameTx(btx, parent, name)
		return err
	})
	return out, err
}

func (s *Store) ListChildren(parent string) ([]*model.DirEntity, error) {
	var out []*model.DirEntity
	err := s.db.View(func(btx *bolt.Tx) error {
		var err error
		out, err = listChildrenTx(btx, parent)
		return err
	})
	return out, err
}

func (s *Store) Exists(id string) (bool, error) {
	var out bool
	err := s.db.View(func(btx *bolt.Tx) error {
		out = existsTx(btx, id)
		return nil
	})
	return out, err
}

func (s *Store) AnyChild(id string) (bool, error) {
	var out bool
	err := s.db.View(func(btx *bolt.Tx) error {
		out = anyChildTx(btx, id)
		return nil
	})
	return out, err
}

func (s *Store) GetChunks(fileID string) ([]model.Chunk, error) {
	var out []model.Chunk
	err := s.db.View(func(btx *bolt.Tx) error {
		var err error
		out, err = getChunksTx(btx, fileID)
		return err
	})
	return out, err
}

func (s *Store) InsertOrReplace(e *model.DirEntity) error {
	return s.db.Update(func(btx *bolt.Tx) error { return insertOrReplaceTx(btx, e) })
}

func (s *Store) CreateFile(parent, name string, stat model.Stat) (*model.DirEntity, error) {
	var out *model.DirEntity
	err := s.db.Update(func(btx *bolt.Tx) error {
		var err error
		out, err = createEntityTx(btx, s.newID, parent, name, stat)
		return err
	})
	return out, err
}

func (s *Store) CreateDirectory(parent, name string, stat model.Stat) (*model.DirEntity, error) {
	stat.FileType = model.Directory
	var out *model.DirEntity
	err := s.db.Update(func(btx *bolt.Tx) error {
		var err error
		out, err = createEntityTx(btx, s.newID, parent, name, stat)
		return err
	})
	return out, err
}

func (s *Store) Remove(id string) error {
	return s.db.Update(func(btx *bolt.Tx) error { return removeTx(btx, id) })
}

func (s *Store) Rename(id, newParent, newName string) error {
	return s.db.Update(func(btx *bolt.Tx) error { return renameTx(btx, id, newParent, newName) })
}

func (s *Store) SetAttributes(id string, attrs AttrUpdate, ctim model.Timespec) error {
	return s.db.Update(func(btx *bolt.Tx) error { return setAttributesTx(btx, id, attrs, ctim) })
}

func (s *Store) Resize(id string, size uint64) error {
	return s.db.Update(func(btx *bolt.Tx) error { return resizeTx(btx, id, size) })
}

func (s *Store) ReplaceChunk(fileID string, index int64, blobID string) error {
	return s.db.Update(func(btx *bolt.Tx) error { return replaceChunkTx(btx, fileID, index, blobID) })
}

func (s *Store) TruncateChunks(fileID string, fromIndex int64) error {
	return s.db.Update(func(btx *bolt.Tx) error { return truncateChunksTx(btx, fileID, fromIndex) })
}

func (s *Store) ChangeID(oldID, newID string) error {
	return s.db.Update(func(btx *bolt.Tx) error { return changeIDTx(btx, oldID, newID) })
}

func (s *Store) BumpVersions(id string, dirent, content bool) error {
	return s.db.Update(func(btx *bolt.Tx) error { return bumpVersionsTx(btx, id, dirent, content) })
}

func (s *Store) AddJournalEntry(fileID string, operation []byte) (int64, error) {
	var seq int64
	err := s.db.Update(func(btx *bolt.Tx) error {
		var err error
		seq, err = addJournalEntryTx(btx, fileID, operation)
		return err
	})
	return seq, err
}

func (s *Store) GetJournal() ([]JournalRecord, error) {
	var out []JournalRecord
	err := s.db.View(func(btx *bolt.Tx) error {
		var err error
		out, err = getJournalTx(btx)
		return err
	})
	return out, err
}

func (s *Store) RemoveJournalItem(seq int64) error {
	return s.db.Update(func(btx *bolt.Tx) error { return removeJournalItemTx(btx, seq) })
}

func (s *Store) RemoveFileFromJournal(fileID string) error {
	return s.db.Update(func(btx *bolt.Tx) error { return removeFileFromJournalTx(btx, fileID) })
}

func (s *Store) ClearJournal() error {
	return s.db.Update(func(btx *bolt.Tx) error { return clearJournalTx(btx) })
}

func (s *Store) AssignTempID(id string) (string, error) {
	var out string
	err := s.db.Update(func(btx *bolt.Tx) error {
		var err error
		out, err = assignTempIDTx(btx, s.newID, id)
		return err
	})
	return out, err
}

func (s *Store) UpdateRetrievedVersion(id string) error {
	return s.db.Update(func(btx *bolt.Tx) error { return updateRetrievedVersionTx(btx, id) })
}

func (s *Store) RemoveRemainingFiles(parent string, keepIDs map[string]struct{}) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return removeRemainingFilesTx(btx, parent, keepIDs)
	})
}
