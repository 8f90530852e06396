package entitystore

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
)

var (
	bucketFile     = []byte("file")
	bucketChildren = []byte("children") // parent\x00name -> id, secondary index
	bucketChunk    = []byte("chunk")    // file\x00index(be64) -> blobID
	bucketJournal  = []byte("journal")  // seq(be64) -> JournalRecord
)

// AttrUpdate carries the optional fields of a set-attributes mutation;
// a nil field leaves the stored value unchanged.
type AttrUpdate struct {
	Perm *uint32
	UID  *uint32
	GID  *uint32
	Size *uint64
	Atim *model.Timespec
	Mtim *model.Timespec
}

// JournalRecord is one client-only journal row.
type JournalRecord struct {
	Seq       int64
	FileID    string
	Operation []byte
}

// Store is the bbolt-backed entity store. The same type backs both the
// client cache and the server store; clientMode gates the journal
// operations, which only make sense client-side.
type Store struct {
	db         *bolt.DB
	clientMode bool
	newID      func() string
}

// Open opens (creating if absent) an entity store at path. newID
// produces a fresh id for create_file/create_directory: the server
// configures idgen.NewAuthoritativeID, the client a *idgen.TempIDGenerator.
func Open(path string, clientMode bool, newID func() string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("entitystore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketFile, bucketChildren, bucketChunk} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		if clientMode {
			if _, err := tx.CreateBucketIfNotExists(bucketJournal); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("entitystore: create buckets: %w", err)
	}
	s := &Store{db: db, clientMode: clientMode, newID: newID}
	if err := s.ensureRoot(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInDir is a convenience wrapper opening "entities.db" under dataDir.
func OpenInDir(dataDir string, clientMode bool, newID func() string) (*Store, error) {
	return Open(filepath.Join(dataDir, "entities.db"), clientMode, newID)
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureRoot() error {
	return s.db.Update(func(btx *bolt.Tx) error {
		existing, err := queryTx(btx, model.RootID)
		if err != nil {
			if !errs.Is(err, errs.FileDoesNotExist) {
				return err
			}
		} else if existing != nil {
			return nil
		}
		root := &model.DirEntity{
			ID:   model.RootID,
			Name: "",
			Stat: model.Stat{
				FileType: model.Directory,
				Mode:     0755,
				Nlink:    1,
			},
		}
		return insertOrReplaceTx(btx, root)
	})
}

func childKey(parent, name string) []byte {
	return append(append([]byte(parent), 0), []byte(name)...)
}

func childPrefix(parent string) []byte {
	return append([]byte(parent), 0)
}

func chunkKey(fileID string, index int64) []byte {
	key := append([]byte(fileID), 0)
	idx := make([]byte, 8)
	binary.BigEndian.PutUint64(idx, uint64(index))
	return append(key, idx...)
}

func chunkPrefix(fileID string) []byte {
	return append([]byte(fileID), 0)
}

// --- read-only queries, implemented against a raw *bolt.Tx so they can
// be shared between the auto-commit Store methods and the explicit Tx
// wrapper below. ---

func queryTx(btx *bolt.Tx, id string) (*model.DirEntity, error) {
	b := btx.Bucket(bucketFile)
	v := b.Get([]byte(id))
	if v == nil {
		return nil, errs.New(errs.FileDoesNotExist, "id %s", id)
	}
	var e model.DirEntity
	if err := json.Unmarshal(v, &e); err != nil {
		return nil, fmt.Errorf("entitystore: decode %s: %w", id, err)
	}
	return &e, nil
}

func queryByNameTx(btx *bolt.Tx, parent, name string) (*model.DirEntity, error) {
	idx := btx.Bucket(bucketChildren)
	id := idx.Get(childKey(parent, name))
	if id == nil {
		return nil, errs.New(errs.FileDoesNotExist, "%s/%s", parent, name)
	}
	return queryTx(btx, string(id))
}

func listChildrenTx(btx *bolt.Tx, parent string) ([]*model.DirEntity, error) {
	idx := btx.Bucket(bucketChildren)
	c := idx.Cursor()
	prefix := childPrefix(parent)
	var out []*model.DirEntity
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		e, err := queryTx(btx, string(v))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func existsTx(btx *bolt.Tx, id string) bool {
	return btx.Bucket(bucketFile).Get([]byte(id)) != nil
}

func anyChildTx(btx *bolt.Tx, parent string) bool {
	idx := btx.Bucket(bucketChildren)
	k, _ := idx.Cursor().Seek(childPrefix(parent))
	return k != nil && bytes.HasPrefix(k, childPrefix(parent))
}

func getChunksTx(btx *bolt.Tx, fileID string) ([]model.Chunk, error) {
	b := btx.Bucket(bucketChunk)
	c := b.Cursor()
	prefix := chunkPrefix(fileID)
	var out []model.Chunk
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		index := int64(binary.BigEndian.Uint64(k[len(prefix):]))
		out = append(out, model.Chunk{FileID: fileID, Index: index, BlobID: string(v)})
	}
	return out, nil
}

// --- mutations, also shared between Store (auto-commit) and Tx. ---

func insertOrReplaceTx(btx *bolt.Tx, e *model.DirEntity) error {
	b := btx.Bucket(bucketFile)
	if !e.IsRoot() {
		idx := btx.Bucket(bucketChildren)
		// Drop any stale secondary-index entry for this id under a
		// different (parent, name) before writing the new one.
		if old, err := queryTx(btx, e.ID); err == nil {
			if old.Parent != e.Parent || old.Name != e.Name {
				if err := idx.Delete(childKey(old.Parent, old.Name)); err != nil {
					return err
				}
			}
		}
		if err := idx.Put(childKey(e.Parent, e.Name), []byte(e.ID)); err != nil {
			return err
		}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.Put([]byte(e.ID), data)
}

func createEntityTx(btx *bolt.Tx, newID func() string, parent, name string, stat model.Stat) (*model.DirEntity, error) {
	e := &model.DirEntity{
		ID:     newID(),
		Parent: parent,
		Name:   name,
		Stat:   stat,
	}
	if err := insertOrReplaceTx(btx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func removeTx(btx *bolt.Tx, id string) error {
	e, err := queryTx(btx, id)
	if err != nil {
		return err
	}
	if !e.IsRoot() {
		idx := btx.Bucket(bucketChildren)
		if err := idx.Delete(childKey(e.Parent, e.Name)); err != nil {
			return err
		}
	}
	if err := btx.Bucket(bucketFile).Delete([]byte(id)); err != nil {
		return err
	}
	return truncateChunksTx(btx, id, 0)
}

func renameTx(btx *bolt.Tx, id, newParent, newName string) error {
	e, err := queryTx(btx, id)
	if err != nil {
		return err
	}
	idx := btx.Bucket(bucketChildren)
	if err := idx.Delete(childKey(e.Parent, e.Name)); err != nil {
		return err
	}
	e.Parent = newParent
	e.Name = newName
	return insertOrReplaceTx(btx, e)
}

func setAttributesTx(btx *bolt.Tx, id string, attrs AttrUpdate, ctim model.Timespec) error {
	e, err := queryTx(btx, id)
	if err != nil {
		return err
	}
	if attrs.Perm != nil {
		e.Stat.Mode = *attrs.Perm
	}
	if attrs.UID != nil {
		e.Stat.UID = *attrs.UID
	}
	if attrs.GID != nil {
		e.Stat.GID = *attrs.GID
	}
	if attrs.Size != nil {
		e.Stat.Size = *attrs.Size
		e.Stat.Blocks = (*attrs.Size + 511) / 512
	}
	if attrs.Atim != nil {
		e.Stat.Atim = *attrs.Atim
	}
	if attrs.Mtim != nil {
		e.Stat.Mtim = *attrs.Mtim
	}
	e.Stat.Ctim = ctim
	return insertOrReplaceTx(btx, e)
}

func resizeTx(btx *bolt.Tx, id string, size uint64) error {
	e, err := queryTx(btx, id)
	if err != nil {
		return err
	}
	oldChunks := model.NumChunks(e.Stat.Size)
	newChunks := model.NumChunks(size)
	e.Stat.Size = size
	e.Stat.Blocks = (size + 511) / 512
	if err := insertOrReplaceTx(btx, e); err != nil {
		return err
	}
	if newChunks > oldChunks {
		// Growing: append chunks pointing at the canonical empty blob,
		// which reads back as zeros without occupying real storage.
		for i := oldChunks; i < newChunks; i++ {
			if err := replaceChunkTx(btx, id, i, blobstoreEmptyID); err != nil {
				return err
			}
		}
		return nil
	}
	if newChunks < oldChunks {
		return truncateChunksTx(btx, id, newChunks)
	}
	return nil
}

func replaceChunkTx(btx *bolt.Tx, fileID string, index int64, blobID string) error {
	return btx.Bucket(bucketChunk).Put(chunkKey(fileID, index), []byte(blobID))
}

func truncateChunksTx(btx *bolt.Tx, fileID string, fromIndex int64) error {
	b := btx.Bucket(bucketChunk)
	c := b.Cursor()
	prefix := chunkPrefix(fileID)
	cutoff := chunkKey(fileID, fromIndex)
	var toDelete [][]byte
	for k, _ := c.Seek(cutoff); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		toDelete = append(toDelete, append([]byte(nil), k...))
	}
	for _, k := range toDelete {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func changeIDTx(btx *bolt.Tx, oldID, newID string) error {
	e, err := queryTx(btx, oldID)
	if err != nil {
		return err
	}
	e.ID = newID
	fb := btx.Bucket(bucketFile)
	if err := fb.Delete([]byte(oldID)); err != nil {
		return err
	}
	if err := insertOrReplaceTx(btx, e); err != nil {
		return err
	}
	// Rewrite chunk references and reparent any children whose parent
	// was oldID.
	chunks, err := getChunksTx(btx, oldID)
	if err != nil {
		return err
	}
	for _, ch := range chunks {
		if err := replaceChunkTx(btx, newID, ch.Index, ch.BlobID); err != nil {
			return err
		}
	}
	if err := truncateChunksTx(btx, oldID, 0); err != nil {
		return err
	}
	children, err := listChildrenTx(btx, oldID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := renameTx(btx, child.ID, newID, child.Name); err != nil {
			return err
		}
	}
	return nil
}

func bumpVersionsTx(btx *bolt.Tx, id string, dirent, content bool) error {
	e, err := queryTx(btx, id)
	if err != nil {
		return err
	}
	if dirent {
		e.DirentVersion++
	}
	if content {
		e.ContentVersion++
	}
	return insertOrReplaceTx(btx, e)
}

// blobstoreEmptyID mirrors blobstore.EmptyBlobID without an import-cycle
// dependency on the blobstore package (both hash the empty byte string).
var blobstoreEmptyID = func() string {
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}()
