package rpc

import "github.com/nimbusfs/nimbusfs/pkg/model"

// ListRequest is the request for the List RPC: one entity per child of
// id, streamed in arbitrary order.
type ListRequest struct {
	ID string
}

// ListChunksRequest requests the ordered blob ids backing a file.
type ListChunksRequest struct {
	ID string
}

// ListChunksResponse carries blob ids ordered by chunk index.
type ListChunksResponse struct {
	BlobIDs []string
}

// GetBlobsRequest requests the content of a set of blobs; the server
// streams BlobChunk messages back in any order.
type GetBlobsRequest struct {
	IDs []string
}

// BlobChunk is one streamed element of the GetBlobs response.
type BlobChunk struct {
	ID      string
	Content []byte
}

// ApplyOperationRequest wraps a CBOR-encoded modifyop.Operation; it
// travels pre-encoded so the RPC layer need not import modifyop.
type ApplyOperationRequest struct {
	Operation []byte
}

// ApplyOperationResponse carries the authoritative entity resulting
// from the operation: for remove-* operations this is the entity as it
// existed before removal.
type ApplyOperationResponse struct {
	Entity model.DirEntity
}

// ApplyJournalRequest carries a batch of journaled operations plus the
// blobs referenced by temp-file writes.
type ApplyJournalRequest struct {
	// Operations is a slice of CBOR-encoded modifyop.Operation values,
	// in submission order.
	Operations [][]byte
	// ChunksPerTempFile is positionally aligned with the create
	// operations in Operations (i-th entry belongs to the i-th create,
	// mirroring AssignedIDs's positional contract): the ordered list of
	// blob ids composing that temp file's content after every buffered
	// write is applied.
	ChunksPerTempFile [][]string
	// Blobs holds the raw content for any blob id referenced above
	// that the server does not already have.
	Blobs []BlobChunk
}

// JournalErrorKind tags the ApplyJournalResponse.Error tagged union.
type JournalErrorKind int

const (
	// JournalErrorNone means the batch applied without error.
	JournalErrorNone JournalErrorKind = iota
	// JournalErrorInvalidJournal means the batch was structurally
	// unrecoverable (e.g. a malformed operation).
	JournalErrorInvalidJournal
	// JournalErrorConflictingFiles means one or more target ids lost a
	// deferred-apply version check; IDs names them.
	JournalErrorConflictingFiles
	// JournalErrorMissingBlobs means one or more referenced blob ids
	// were absent from both the request and the server's blob store;
	// IDs names them.
	JournalErrorMissingBlobs
)

// JournalError is the tagged-union error payload of ApplyJournalResponse.
type JournalError struct {
	Kind JournalErrorKind
	IDs  []string
}

// ApplyJournalResponse reports, per submitted operation, the server's
// assigned id and the resulting authoritative entity. AssignedIDs is
// positionally matched to create operations only: it has exactly as
// many entries as there were create operations in the request, in
// submission order.
type ApplyJournalResponse struct {
	AssignedIDs []string
	DirEntities []model.DirEntity
	Error       *JournalError
}

// GetMissingBlobsRequest asks which of IDs the server does not have.
type GetMissingBlobsRequest struct {
	IDs []string
}

// GetMissingBlobsResponse lists ids from the request absent server-side.
type GetMissingBlobsResponse struct {
	BlobIDs []string
}
