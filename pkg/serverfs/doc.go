// Package serverfs is the authoritative server-side filesystem: it
// implements the version-bump rules, the deferred conflict policy and
// conflicted-copy naming, and the ApplyJournal batch orchestration
// against an entitystore.Store and a blobstore.Store.
//
// It supplies both halves of the opapply split: FS
// implements opapply.PerformHandler for the (conflict-free) direct
// ApplyOperation RPC, and deferredTx implements opapply.DeferredHandler
// for use inside the single transaction ApplyJournal runs its whole
// batch under.
package serverfs
