// Package entitystore is the transactional, row-oriented store for
// directory entities, per-file chunk lists and (client-only) the journal.
// It is backed by go.etcd.io/bbolt, one bucket per logical table —
// JSON-marshaled rows keyed by id, plus small secondary-index buckets for
// the (parent, name) lookups bbolt has no native index for.
//
// A *Tx is a transaction handle with guaranteed rollback on drop:
// callers must defer tx.Rollback() immediately after Begin(); a
// subsequent Commit() makes the rollback a no-op, and any path that
// returns early without committing discards every mutation made
// through the handle.
package entitystore
