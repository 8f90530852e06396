package errs

import "fmt"

// Kind is the numeric status code carried in the nimbusfs-status-code
// gRPC metadata header.
type Kind int

const (
	// DatabaseError covers entity-store / blob-store driver failures.
	DatabaseError Kind = iota
	// DirectoryNotEmpty is returned by rmdir against a non-empty directory.
	DirectoryNotEmpty
	// ConflictedFile is returned when a deferred apply loses to existing content.
	ConflictedFile
	// InvalidContentVersion means the caller's content_version is ahead of the store's.
	InvalidContentVersion
	// BlobDoesNotExist means a referenced blob id is absent from the blob store.
	BlobDoesNotExist
	// Offline means the client could not satisfy the request while offline.
	Offline
	// FileDoesNotExist means the target entity is not present.
	FileDoesNotExist
	// InvalidUnicode means a name or payload was not valid UTF-8.
	InvalidUnicode
	// InvalidJournal means the client's journal is corrupt; unrecoverable.
	InvalidJournal
)

func (k Kind) String() string {
	switch k {
	case DatabaseError:
		return "DatabaseError"
	case DirectoryNotEmpty:
		return "DirectoryNotEmpty"
	case ConflictedFile:
		return "ConflictedFile"
	case InvalidContentVersion:
		return "InvalidContentVersion"
	case BlobDoesNotExist:
		return "BlobDoesNotExist"
	case Offline:
		return "Offline"
	case FileDoesNotExist:
		return "FileDoesNotExist"
	case InvalidUnicode:
		return "InvalidUnicode"
	case InvalidJournal:
		return "InvalidJournal"
	default:
		return "Unknown"
	}
}

// Status is the error type that crosses every layer boundary in NimbusFS:
// entity store, operation applier, synchronizer and wire transport all
// produce and consume *Status rather than ad-hoc errors.
type Status struct {
	Kind    Kind
	Message string
	// Details is an opaque, kind-specific payload, carried verbatim in
	// the nimbusfs-status-details trailer. ApplyJournal reports its
	// conflicting ids through rpc.JournalError, not here.
	Details []byte
}

func (s *Status) Error() string {
	if s.Message == "" {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s: %s", s.Kind, s.Message)
}

// New builds a *Status with a formatted message.
func New(kind Kind, format string, args ...any) *Status {
	return &Status{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches an opaque details payload to a Status.
func (s *Status) WithDetails(details []byte) *Status {
	s.Details = details
	return s
}

// Is reports whether err is a *Status of the given kind, unwrapping
// through fmt.Errorf %w chains.
func Is(err error, kind Kind) bool {
	var st *Status
	for err != nil {
		if s, ok := err.(*Status); ok {
			st = s
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return st != nil && st.Kind == kind
}

// As extracts the *Status from err, unwrapping through %w chains.
func As(err error) (*Status, bool) {
	for err != nil {
		if s, ok := err.(*Status); ok {
			return s, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
