package opapply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
)

type fakeHandler struct {
	calls []string
}

func (f *fakeHandler) PerformCreateFile(id string, ts model.Timespec, op *modifyop.CreateFile) (string, error) {
	f.calls = append(f.calls, "create_file")
	return "new-id", nil
}
func (f *fakeHandler) PerformCreateSymlink(id string, ts model.Timespec, op *modifyop.CreateSymlink) (string, error) {
	f.calls = append(f.calls, "create_symlink")
	return "new-id", nil
}
func (f *fakeHandler) PerformCreateDirectory(id string, ts model.Timespec, op *modifyop.CreateDirectory) (string, error) {
	f.calls = append(f.calls, "create_directory")
	return "new-id", nil
}
func (f *fakeHandler) PerformRemoveFile(id string, ts model.Timespec, op *modifyop.RemoveFile) error {
	f.calls = append(f.calls, "remove_file")
	return nil
}
func (f *fakeHandler) PerformRemoveDirectory(id string, ts model.Timespec, op *modifyop.RemoveDirectory) error {
	f.calls = append(f.calls, "remove_directory")
	return nil
}
func (f *fakeHandler) PerformRename(id string, ts model.Timespec, op *modifyop.Rename) error {
	f.calls = append(f.calls, "rename")
	return nil
}
func (f *fakeHandler) PerformSetAttributes(id string, ts model.Timespec, op *modifyop.SetAttributes) error {
	f.calls = append(f.calls, "set_attributes")
	return nil
}
func (f *fakeHandler) PerformWrite(id string, ts model.Timespec, op *modifyop.Write) error {
	f.calls = append(f.calls, "write")
	return nil
}

func TestApplyOperationCreateReturnsNewID(t *testing.T) {
	h := &fakeHandler{}
	op := modifyop.NewCreateFile("parent", model.Now(), 0, 0, "f", model.RegularFile, 0644, 0)
	id, err := ApplyOperation(h, op)
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
	assert.Equal(t, []string{"create_file"}, h.calls)
}

func TestApplyOperationWriteReturnsSameID(t *testing.T) {
	h := &fakeHandler{}
	op := modifyop.NewWrite("target", model.Now(), 1, 1, 0, []byte("x"))
	id, err := ApplyOperation(h, op)
	require.NoError(t, err)
	assert.Equal(t, "target", id)
	assert.Equal(t, []string{"write"}, h.calls)
}

func TestApplyOperationRenameReturnsSameID(t *testing.T) {
	h := &fakeHandler{}
	op := modifyop.NewRename("target", model.Now(), 1, 1, "newparent", "newname")
	id, err := ApplyOperation(h, op)
	require.NoError(t, err)
	assert.Equal(t, "target", id)
}

type fakeDeferredHandler struct{ conflictOn string }

func (f *fakeDeferredHandler) DeferredCreateFile(id string, ts model.Timespec, dv, cv int64, op *modifyop.CreateFile) (string, error) {
	return "srv-id", nil
}
func (f *fakeDeferredHandler) DeferredCreateSymlink(id string, ts model.Timespec, dv, cv int64, op *modifyop.CreateSymlink) (string, error) {
	return "srv-id", nil
}
func (f *fakeDeferredHandler) DeferredCreateDirectory(id string, ts model.Timespec, dv, cv int64, op *modifyop.CreateDirectory) (string, error) {
	return "srv-id", nil
}
func (f *fakeDeferredHandler) DeferredRemoveFile(id string, ts model.Timespec, dv, cv int64, op *modifyop.RemoveFile) error {
	return nil
}
func (f *fakeDeferredHandler) DeferredRemoveDirectory(id string, ts model.Timespec, dv, cv int64, op *modifyop.RemoveDirectory) error {
	return nil
}
func (f *fakeDeferredHandler) DeferredRename(id string, ts model.Timespec, dv, cv int64, op *modifyop.Rename) error {
	return nil
}
func (f *fakeDeferredHandler) DeferredSetAttributes(id string, ts model.Timespec, dv, cv int64, op *modifyop.SetAttributes) error {
	return nil
}
func (f *fakeDeferredHandler) DeferredWrite(id string, ts model.Timespec, dv, cv int64, op *modifyop.Write) error {
	if id == f.conflictOn {
		return assertConflict()
	}
	return nil
}

func assertConflict() error {
	return &conflictErr{}
}

type conflictErr struct{}

func (*conflictErr) Error() string { return "conflict" }

func TestApplyOperationDeferredCreateReturnsServerID(t *testing.T) {
	h := &fakeDeferredHandler{}
	op := modifyop.NewCreateDirectory("parent", model.Now(), 0, 0, "d", 0755)
	id, err := ApplyOperationDeferred(h, op)
	require.NoError(t, err)
	assert.Equal(t, "srv-id", id)
}

func TestApplyOperationDeferredPropagatesConflict(t *testing.T) {
	h := &fakeDeferredHandler{conflictOn: "target"}
	op := modifyop.NewWrite("target", model.Now(), 1, 1, 0, []byte("x"))
	_, err := ApplyOperationDeferred(h, op)
	assert.Error(t, err)
}
