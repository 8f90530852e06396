// Package opapply is the operation applier: a single dispatcher that
// routes a modifyop.Operation through a handler capability, in one of
// two modes.
//
// Immediate apply (ApplyOperation) calls the handler's Perform* methods,
// which ignore the operation's observed versions; it is used client-side
// against the local cache, and server-side inside the ApplyOperation RPC
// where conflicts cannot occur because the caller is authoritative.
//
// Deferred apply (ApplyOperationDeferred) calls the handler's Deferred*
// methods, which may consult dirent_version/content_version to detect a
// conflict; it is used only on the server, inside ApplyJournal.
//
// The split into two interfaces, rather than one handler with default
// "unimplemented" methods, keeps a client cache from ever needing to
// implement anything beyond PerformHandler.
package opapply
