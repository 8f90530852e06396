package modifyop

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
)

// Kind tags which payload a ModifyOperation carries.
type Kind int

const (
	KindCreateFile Kind = iota
	KindCreateSymlink
	KindCreateDirectory
	KindRemoveFile
	KindRemoveDirectory
	KindRename
	KindSetAttributes
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindCreateFile:
		return "CreateFile"
	case KindCreateSymlink:
		return "CreateSymlink"
	case KindCreateDirectory:
		return "CreateDirectory"
	case KindRemoveFile:
		return "RemoveFile"
	case KindRemoveDirectory:
		return "RemoveDirectory"
	case KindRename:
		return "Rename"
	case KindSetAttributes:
		return "SetAttributes"
	case KindWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// CreateFile creates a regular file, device node, fifo or socket under
// the parent named in the operation header's ID.
type CreateFile struct {
	Name     string
	FileType model.FileType
	Perm     uint32
	Dev      uint64
}

// CreateSymlink creates a symlink whose target is stored as its content.
type CreateSymlink struct {
	Name string
	Link string
}

// CreateDirectory creates a child directory.
type CreateDirectory struct {
	Name string
	Perm uint32
}

// RemoveFile removes a non-directory entry.
type RemoveFile struct{}

// RemoveDirectory removes an empty directory.
type RemoveDirectory struct{}

// Rename moves/renames the target entity.
type Rename struct {
	NewParent string
	NewName   string
}

// SetAttributes updates zero or more optional stat fields.
type SetAttributes struct {
	Perm *uint32
	UID  *uint32
	GID  *uint32
	Size *uint64
	Atim *model.Timespec
	Mtim *model.Timespec
}

// Write appends/overwrites a byte range.
type Write struct {
	Offset int64
	Data   []byte
}

// Operation is the tagged-variant modify-operation: the header's ID is
// the PARENT id for the three create variants and the TARGET id for
// everything else.
type Operation struct {
	ID             string
	Timestamp      model.Timespec
	DirentVersion  int64
	ContentVersion int64

	Kind Kind

	CreateFile      *CreateFile      `cbor:",omitempty"`
	CreateSymlink   *CreateSymlink   `cbor:",omitempty"`
	CreateDirectory *CreateDirectory `cbor:",omitempty"`
	RemoveFile      *RemoveFile      `cbor:",omitempty"`
	RemoveDirectory *RemoveDirectory `cbor:",omitempty"`
	Rename          *Rename          `cbor:",omitempty"`
	SetAttributes   *SetAttributes   `cbor:",omitempty"`
	Write           *Write           `cbor:",omitempty"`
}

// Encode serializes op to its canonical CBOR wire/journal representation.
func Encode(op *Operation) ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("modifyop: encode: %w", err)
	}
	data, err := em.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("modifyop: encode: %w", err)
	}
	return data, nil
}

// Decode deserializes a CBOR-encoded Operation.
func Decode(data []byte) (*Operation, error) {
	var op Operation
	if err := cbor.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("modifyop: decode: %w", err)
	}
	return &op, nil
}

func header(id string, ts model.Timespec, direntVersion, contentVersion int64) Operation {
	return Operation{ID: id, Timestamp: ts, DirentVersion: direntVersion, ContentVersion: contentVersion}
}

// NewCreateFile builds a create-file operation; id is the PARENT id.
func NewCreateFile(id string, ts model.Timespec, direntVersion, contentVersion int64, name string, fileType model.FileType, perm uint32, dev uint64) *Operation {
	op := header(id, ts, direntVersion, contentVersion)
	op.Kind = KindCreateFile
	op.CreateFile = &CreateFile{Name: name, FileType: fileType, Perm: perm, Dev: dev}
	return &op
}

// NewCreateSymlink builds a create-symlink operation; id is the PARENT id.
func NewCreateSymlink(id string, ts model.Timespec, direntVersion, contentVersion int64, name, link string) *Operation {
	op := header(id, ts, direntVersion, contentVersion)
	op.Kind = KindCreateSymlink
	op.CreateSymlink = &CreateSymlink{Name: name, Link: link}
	return &op
}

// NewCreateDirectory builds a create-directory operation; id is the PARENT id.
func NewCreateDirectory(id string, ts model.Timespec, direntVersion, contentVersion int64, name string, perm uint32) *Operation {
	op := header(id, ts, direntVersion, contentVersion)
	op.Kind = KindCreateDirectory
	op.CreateDirectory = &CreateDirectory{Name: name, Perm: perm}
	return &op
}

// NewRemoveFile builds a remove-file operation; id is the TARGET id.
func NewRemoveFile(id string, ts model.Timespec, direntVersion, contentVersion int64) *Operation {
	op := header(id, ts, direntVersion, contentVersion)
	op.Kind = KindRemoveFile
	op.RemoveFile = &RemoveFile{}
	return &op
}

// NewRemoveDirectory builds a remove-directory operation; id is the TARGET id.
func NewRemoveDirectory(id string, ts model.Timespec, direntVersion, contentVersion int64) *Operation {
	op := header(id, ts, direntVersion, contentVersion)
	op.Kind = KindRemoveDirectory
	op.RemoveDirectory = &RemoveDirectory{}
	return &op
}

// NewRename builds a rename operation; id is the TARGET id.
func NewRename(id string, ts model.Timespec, direntVersion, contentVersion int64, newParent, newName string) *Operation {
	op := header(id, ts, direntVersion, contentVersion)
	op.Kind = KindRename
	op.Rename = &Rename{NewParent: newParent, NewName: newName}
	return &op
}

// NewSetAttributes builds a set-attributes operation; id is the TARGET id.
func NewSetAttributes(id string, ts model.Timespec, direntVersion, contentVersion int64, attrs SetAttributes) *Operation {
	op := header(id, ts, direntVersion, contentVersion)
	op.Kind = KindSetAttributes
	op.SetAttributes = &attrs
	return &op
}

// NewWrite builds a write operation; id is the TARGET id.
func NewWrite(id string, ts model.Timespec, direntVersion, contentVersion int64, offset int64, data []byte) *Operation {
	op := header(id, ts, direntVersion, contentVersion)
	op.Kind = KindWrite
	op.Write = &Write{Offset: offset, Data: data}
	return &op
}

// ValidateName rejects empty/"."/".."/names containing '/' and
// non-UTF-8 names.
func ValidateName(name string) error {
	if !utf8.ValidString(name) {
		return errs.New(errs.InvalidUnicode, "name is not valid UTF-8")
	}
	if name == "" || name == "." || name == ".." {
		return errs.New(errs.InvalidUnicode, "invalid name %q", name)
	}
	if strings.Contains(name, "/") {
		return errs.New(errs.InvalidUnicode, "name %q contains '/'", name)
	}
	return nil
}
