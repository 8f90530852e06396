package opapply

import (
	"fmt"

	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
)

// PerformHandler applies an operation unconditionally: it never consults
// the operation's observed versions.
type PerformHandler interface {
	PerformCreateFile(id string, ts model.Timespec, op *modifyop.CreateFile) (string, error)
	PerformCreateSymlink(id string, ts model.Timespec, op *modifyop.CreateSymlink) (string, error)
	PerformCreateDirectory(id string, ts model.Timespec, op *modifyop.CreateDirectory) (string, error)
	PerformRemoveFile(id string, ts model.Timespec, op *modifyop.RemoveFile) error
	PerformRemoveDirectory(id string, ts model.Timespec, op *modifyop.RemoveDirectory) error
	PerformRename(id string, ts model.Timespec, op *modifyop.Rename) error
	PerformSetAttributes(id string, ts model.Timespec, op *modifyop.SetAttributes) error
	PerformWrite(id string, ts model.Timespec, op *modifyop.Write) error
}

// DeferredHandler applies an operation that may conflict with state the
// server already has, consulting the operation's observed versions.
type DeferredHandler interface {
	DeferredCreateFile(id string, ts model.Timespec, direntVersion, contentVersion int64, op *modifyop.CreateFile) (string, error)
	DeferredCreateSymlink(id string, ts model.Timespec, direntVersion, contentVersion int64, op *modifyop.CreateSymlink) (string, error)
	DeferredCreateDirectory(id string, ts model.Timespec, direntVersion, contentVersion int64, op *modifyop.CreateDirectory) (string, error)
	DeferredRemoveFile(id string, ts model.Timespec, direntVersion, contentVersion int64, op *modifyop.RemoveFile) error
	DeferredRemoveDirectory(id string, ts model.Timespec, direntVersion, contentVersion int64, op *modifyop.RemoveDirectory) error
	DeferredRename(id string, ts model.Timespec, direntVersion, contentVersion int64, op *modifyop.Rename) error
	DeferredSetAttributes(id string, ts model.Timespec, direntVersion, contentVersion int64, op *modifyop.SetAttributes) error
	DeferredWrite(id string, ts model.Timespec, direntVersion, contentVersion int64, op *modifyop.Write) error
}

// ApplyOperation dispatches op through h's Perform* methods. The
// returned id is the newly assigned id for creates, and op.ID unchanged
// for everything else.
func ApplyOperation(h PerformHandler, op *modifyop.Operation) (string, error) {
	id, ts := op.ID, op.Timestamp
	switch op.Kind {
	case modifyop.KindCreateFile:
		return h.PerformCreateFile(id, ts, op.CreateFile)
	case modifyop.KindCreateSymlink:
		return h.PerformCreateSymlink(id, ts, op.CreateSymlink)
	case modifyop.KindCreateDirectory:
		return h.PerformCreateDirectory(id, ts, op.CreateDirectory)
	case modifyop.KindRemoveFile:
		return id, h.PerformRemoveFile(id, ts, op.RemoveFile)
	case modifyop.KindRemoveDirectory:
		return id, h.PerformRemoveDirectory(id, ts, op.RemoveDirectory)
	case modifyop.KindRename:
		return id, h.PerformRename(id, ts, op.Rename)
	case modifyop.KindSetAttributes:
		return id, h.PerformSetAttributes(id, ts, op.SetAttributes)
	case modifyop.KindWrite:
		return id, h.PerformWrite(id, ts, op.Write)
	default:
		return "", fmt.Errorf("opapply: unknown operation kind %v", op.Kind)
	}
}

// ApplyOperationDeferred dispatches op through h's Deferred* methods.
func ApplyOperationDeferred(h DeferredHandler, op *modifyop.Operation) (string, error) {
	id, ts, dv, cv := op.ID, op.Timestamp, op.DirentVersion, op.ContentVersion
	switch op.Kind {
	case modifyop.KindCreateFile:
		return h.DeferredCreateFile(id, ts, dv, cv, op.CreateFile)
	case modifyop.KindCreateSymlink:
		return h.DeferredCreateSymlink(id, ts, dv, cv, op.CreateSymlink)
	case modifyop.KindCreateDirectory:
		return h.DeferredCreateDirectory(id, ts, dv, cv, op.CreateDirectory)
	case modifyop.KindRemoveFile:
		return id, h.DeferredRemoveFile(id, ts, dv, cv, op.RemoveFile)
	case modifyop.KindRemoveDirectory:
		return id, h.DeferredRemoveDirectory(id, ts, dv, cv, op.RemoveDirectory)
	case modifyop.KindRename:
		return id, h.DeferredRename(id, ts, dv, cv, op.Rename)
	case modifyop.KindSetAttributes:
		return id, h.DeferredSetAttributes(id, ts, dv, cv, op.SetAttributes)
	case modifyop.KindWrite:
		return id, h.DeferredWrite(id, ts, dv, cv, op.Write)
	default:
		return "", fmt.Errorf("opapply: unknown operation kind %v", op.Kind)
	}
}
