package entitystore

import (
	"encoding/binary"
	"encoding/json"
	"sort"

	bolt "go.etcd.io/bbolt"
)

func addJournalEntryTx(btx *bolt.Tx, fileID string, operation []byte) (int64, error) {
	b := btx.Bucket(bucketJournal)
	seq, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	rec := JournalRecord{Seq: int64(seq), FileID: fileID, Operation: operation}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	if err := b.Put(key, data); err != nil {
		return 0, err
	}
	return rec.Seq, nil
}

func getJournalTx(btx *bolt.Tx) ([]JournalRecord, error) {
	b := btx.Bucket(bucketJournal)
	var out []JournalRecord
	err := b.ForEach(func(_, v []byte) error {
		var rec JournalRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// bbolt iterates keys in byte order, which for fixed-width big-endian
	// uint64 keys is already seq order; the explicit sort guards against
	// that assumption changing.
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func removeJournalItemTx(btx *bolt.Tx, seq int64) error {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(seq))
	return btx.Bucket(bucketJournal).Delete(key)
}

func removeFileFromJournalTx(btx *bolt.Tx, fileID string) error {
	recs, err := getJournalTx(btx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if rec.FileID == fileID {
			if err := removeJournalItemTx(btx, rec.Seq); err != nil {
				return err
			}
		}
	}
	return nil
}

func clearJournalTx(btx *bolt.Tx) error {
	b := btx.Bucket(bucketJournal)
	c := b.Cursor()
	var keys [][]byte
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// assignTempIDTx generates a fresh temp id via newID and rewrites id's
// entity row and chunk references to it. Conflict re-creation reassigns
// a conflicting local file a new placeholder id before re-submitting it.
func assignTempIDTx(btx *bolt.Tx, newID func() string, id string) (string, error) {
	fresh := newID()
	if err := changeIDTx(btx, id, fresh); err != nil {
		return "", err
	}
	return fresh, nil
}

func updateRetrievedVersionTx(btx *bolt.Tx, id string) error {
	e, err := queryTx(btx, id)
	if err != nil {
		return err
	}
	e.RetrievedVersion = e.ContentVersion
	return insertOrReplaceTx(btx, e)
}

// removeRemainingFilesTx prunes any cached child of parent not present
// in keepIDs, the cache-side half of a successful list() refresh: any
// child not present in the returned set is stale and is dropped.
func removeRemainingFilesTx(btx *bolt.Tx, parent string, keepIDs map[string]struct{}) error {
	children, err := listChildrenTx(btx, parent)
	if err != nil {
		return err
	}
	for _, child := range children {
		if _, ok := keepIDs[child.ID]; ok {
			continue
		}
		if err := removeTx(btx, child.ID); err != nil {
			return err
		}
	}
	return nil
}
