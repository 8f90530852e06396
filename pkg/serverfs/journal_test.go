package serverfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/nimbusfs/pkg/blobstore"
	"github.com/nimbusfs/nimbusfs/pkg/idgen"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
)

func encodeAll(t *testing.T, ops ...*modifyop.Operation) [][]byte {
	t.Helper()
	raw := make([][]byte, len(ops))
	for i, op := range ops {
		data, err := modifyop.Encode(op)
		require.NoError(t, err)
		raw[i] = data
	}
	return raw
}

func TestApplyJournalCreateAndWriteAssignsIDAndInstallsChunks(t *testing.T) {
	f := newFS(t)
	ts := model.Now()
	tempID := idgen.FormatTempID(0)

	createOp := modifyop.NewCreateFile(model.RootID, ts, 0, 0, "a.txt", model.RegularFile, 0644, 0)
	writeOp := modifyop.NewWrite(tempID, ts, 0, 0, 0, []byte("hello"))

	content := []byte("hello")
	blobID := blobstore.HashID(blobstore.TrimTrailingZeros(content))

	outcome, err := f.ApplyJournal(
		encodeAll(t, createOp, writeOp),
		[][]string{{blobID}},
		map[string][]byte{blobID: content},
	)
	require.NoError(t, err)
	require.Len(t, outcome.AssignedIDs, 1)
	assignedID := outcome.AssignedIDs[0]
	assert.NotEqual(t, tempID, assignedID)

	e, err := f.Entities.Query(assignedID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", e.Name)

	chunks, err := f.Entities.GetChunks(assignedID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, blobID, chunks[0].BlobID)

	got, err := f.Blobs.Get(blobID)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestApplyJournalConflictedWriteReturnsConflictingFiles(t *testing.T) {
	f := newFS(t)
	id, err := f.PerformCreateFile(model.RootID, model.Now(), &modifyop.CreateFile{Name: "a.txt", FileType: model.RegularFile, Perm: 0644})
	require.NoError(t, err)
	require.NoError(t, f.PerformWrite(id, model.Now(), &modifyop.Write{Offset: 0, Data: []byte("v1")}))

	// This client observed content_version 0 (stale) before the write above
	// landed, so its own write now conflicts.
	staleWrite := modifyop.NewWrite(id, model.Now(), 0, 0, 0, []byte("v2"))

	_, err = f.ApplyJournal(encodeAll(t, staleWrite), nil, nil)
	require.Error(t, err)
	var conflictErr *ConflictingFilesError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, []string{id}, conflictErr.IDs)
}

func TestApplyJournalMissingBlobReturnsMissingBlobsError(t *testing.T) {
	f := newFS(t)
	ts := model.Now()
	createOp := modifyop.NewCreateFile(model.RootID, ts, 0, 0, "a.txt", model.RegularFile, 0644, 0)

	_, err := f.ApplyJournal(
		encodeAll(t, createOp),
		[][]string{{"deadbeef"}},
		nil,
	)
	require.Error(t, err)
	var missingErr *MissingBlobsError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, []string{"deadbeef"}, missingErr.IDs)
}

func TestApplyJournalCreateUnderTempParentRewritesNestedID(t *testing.T) {
	f := newFS(t)
	ts := model.Now()
	tempParent := idgen.FormatTempID(0)

	createDir := modifyop.NewCreateDirectory(model.RootID, ts, 0, 0, "d", 0755)
	createFileUnderDir := modifyop.NewCreateFile(tempParent, ts, 0, 0, "a.txt", model.RegularFile, 0644, 0)

	outcome, err := f.ApplyJournal(encodeAll(t, createDir, createFileUnderDir), [][]string{nil, nil}, nil)
	require.NoError(t, err)
	require.Len(t, outcome.AssignedIDs, 2)

	child, err := f.Entities.Query(outcome.AssignedIDs[1])
	require.NoError(t, err)
	assert.Equal(t, outcome.AssignedIDs[0], child.Parent)
}
