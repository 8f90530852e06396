package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
)

var bucketBlobs = []byte("blob")

// Store is the content-addressed blob store contract. Client cache and
// server store both satisfy it with the identical BoltStore
// implementation below.
type Store interface {
	// Add strips trailing zero bytes, hashes the remainder and inserts
	// idempotently, returning the digest.
	Add(content []byte) (string, error)
	// Get returns the bytes for id, or a BlobDoesNotExist *errs.Status.
	Get(id string) ([]byte, error)
	// GetMany returns only the entries present among ids.
	GetMany(ids []string) (map[string][]byte, error)
	// Missing returns the subset of ids not present in the store.
	Missing(ids []string) ([]string, error)
	// GC deletes every blob id not present in keep.
	GC(keep map[string]struct{}) error
	// Stats reports the total blob count and cumulative content size.
	Stats() (count int, totalBytes int64, err error)
	Close() error
}

// TrimTrailingZeros strips trailing zero bytes from content, the
// canonicalization step that makes a logically all-zero chunk map to the
// single canonical empty blob.
func TrimTrailingZeros(content []byte) []byte {
	i := len(content)
	for i > 0 && content[i-1] == 0 {
		i--
	}
	return content[:i]
}

// HashID computes the blob id for trimmed content: hex(SHA-256(content)).
func HashID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// EmptyBlobID is the id of the canonical empty blob (SHA-256 of zero
// bytes), reachable via zero-stripping from any all-zero input.
var EmptyBlobID = HashID(nil)

// BoltStore is the bbolt-backed blob store, identical on client and
// server: a single bucket keyed by hex digest.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt-backed blob store at path.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("blobstore: create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// OpenInDir is a convenience wrapper opening "blobs.db" under dataDir.
func OpenInDir(dataDir string) (*BoltStore, error) {
	return Open(filepath.Join(dataDir, "blobs.db"))
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Add(content []byte) (string, error) {
	trimmed := TrimTrailingZeros(content)
	id := HashID(trimmed)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		if b.Get([]byte(id)) != nil {
			// Idempotent insert: already present, nothing to do.
			return nil
		}
		// Copy: bbolt's Put does not retain the slice, but we copy
		// explicitly to make the contract obvious at the call site.
		cp := make([]byte, len(trimmed))
		copy(cp, trimmed)
		return b.Put([]byte(id), cp)
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: add: %w", err)
	}
	return id, nil
}

func (s *BoltStore) Get(id string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		v := b.Get([]byte(id))
		if v == nil {
			return errs.New(errs.BlobDoesNotExist, "blob %s", id)
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) GetMany(ids []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		for _, id := range ids {
			v := b.Get([]byte(id))
			if v == nil {
				continue
			}
			cp := make([]byte, len(v))
			copy(cp, v)
			out[id] = cp
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: get_many: %w", err)
	}
	return out, nil
}

func (s *BoltStore) Missing(ids []string) ([]string, error) {
	var missing []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		for _, id := range ids {
			if b.Get([]byte(id)) == nil {
				missing = append(missing, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: missing: %w", err)
	}
	return missing, nil
}

// GC deletes every blob not present in keep. Callers are responsible for
// computing keep from the entity store's chunk rows (blob reachability
// is a relation owned by the entity store, not the blob store itself).
func (s *BoltStore) GC(keep map[string]struct{}) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		var toDelete [][]byte
		err := b.ForEach(func(k, _ []byte) error {
			if _, ok := keep[string(k)]; !ok {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats reports the total blob count and cumulative content size.
func (s *BoltStore) Stats() (count int, totalBytes int64, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		return b.ForEach(func(_, v []byte) error {
			count++
			totalBytes += int64(len(v))
			return nil
		})
	})
	return count, totalBytes, err
}
