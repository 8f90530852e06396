package entitystore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/idgen"
	"github.com/nimbusfs/nimbusfs/pkg/model"
)

func newServerStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "entities.db"), false, idgen.NewAuthoritativeID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newClientStore(t *testing.T) (*Store, *idgen.TempIDGenerator) {
	t.Helper()
	gen := idgen.NewTempIDGenerator()
	s, err := Open(filepath.Join(t.TempDir(), "entities.db"), true, gen.Next)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, gen
}

func TestRootExists(t *testing.T) {
	s := newServerStore(t)
	root, err := s.Query(model.RootID)
	require.NoError(t, err)
	assert.Equal(t, model.Directory, root.Stat.FileType)
	assert.Empty(t, root.Parent)
}

func TestCreateFileAndQueryByName(t *testing.T) {
	s := newServerStore(t)
	f, err := s.CreateFile(model.RootID, "a.txt", model.Stat{FileType: model.RegularFile, Mode: 0644})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)

	got, err := s.QueryByName(model.RootID, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
}

func TestListChildrenEmptyDirReturnsEmptySet(t *testing.T) {
	s := newServerStore(t)
	dir, err := s.CreateDirectory(model.RootID, "d", model.Stat{Mode: 0755})
	require.NoError(t, err)

	children, err := s.ListChildren(dir.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestAnyChild(t *testing.T) {
	s := newServerStore(t)
	dir, err := s.CreateDirectory(model.RootID, "d", model.Stat{Mode: 0755})
	require.NoError(t, err)

	any, err := s.AnyChild(dir.ID)
	require.NoError(t, err)
	assert.False(t, any)

	_, err = s.CreateFile(dir.ID, "f", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)

	any, err = s.AnyChild(dir.ID)
	require.NoError(t, err)
	assert.True(t, any)
}

func TestCreateThenRemoveRestoresState(t *testing.T) {
	// R4: create then remove leaves the store as if neither happened,
	// except the parent's content_version has advanced by two.
	s := newServerStore(t)
	require.NoError(t, s.BumpVersions(model.RootID, false, true))
	before, err := s.Query(model.RootID)
	require.NoError(t, err)

	f, err := s.CreateFile(model.RootID, "a.txt", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)
	require.NoError(t, s.BumpVersions(model.RootID, false, true))

	require.NoError(t, s.Remove(f.ID))
	require.NoError(t, s.BumpVersions(model.RootID, false, true))

	_, err = s.Query(f.ID)
	assert.True(t, errs.Is(err, errs.FileDoesNotExist))

	children, err := s.ListChildren(model.RootID)
	require.NoError(t, err)
	assert.Empty(t, children)

	after, err := s.Query(model.RootID)
	require.NoError(t, err)
	assert.Equal(t, before.ContentVersion+2, after.ContentVersion)
}

func TestRenameAcrossParentsBumpsVersions(t *testing.T) {
	s := newServerStore(t)
	a, err := s.CreateDirectory(model.RootID, "a", model.Stat{Mode: 0755})
	require.NoError(t, err)
	b, err := s.CreateDirectory(model.RootID, "b", model.Stat{Mode: 0755})
	require.NoError(t, err)
	f, err := s.CreateFile(a.ID, "f", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)

	require.NoError(t, s.Rename(f.ID, b.ID, "f"))
	require.NoError(t, s.BumpVersions(a.ID, false, true))
	require.NoError(t, s.BumpVersions(b.ID, false, true))
	require.NoError(t, s.BumpVersions(f.ID, true, false))

	children, err := s.ListChildren(a.ID)
	require.NoError(t, err)
	assert.Empty(t, children)

	moved, err := s.QueryByName(b.ID, "f")
	require.NoError(t, err)
	assert.Equal(t, f.ID, moved.ID)
	assert.Equal(t, int64(1), moved.DirentVersion)
}

func TestResizeGrowAppendsEmptyBlobChunks(t *testing.T) {
	s := newServerStore(t)
	f, err := s.CreateFile(model.RootID, "f", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)

	require.NoError(t, s.Resize(f.ID, model.BlobSize*2))
	chunks, err := s.GetChunks(f.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, int64(0), chunks[0].Index)
	assert.Equal(t, int64(1), chunks[1].Index)
}

func TestResizeShrinkTruncatesChunks(t *testing.T) {
	s := newServerStore(t)
	f, err := s.CreateFile(model.RootID, "f", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)
	require.NoError(t, s.Resize(f.ID, model.BlobSize*3))
	require.NoError(t, s.Resize(f.ID, model.BlobSize))

	chunks, err := s.GetChunks(f.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestChangeIDRewritesChunks(t *testing.T) {
	s := newServerStore(t)
	f, err := s.CreateFile(model.RootID, "f", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)
	require.NoError(t, s.ReplaceChunk(f.ID, 0, "deadbeef"))

	require.NoError(t, s.ChangeID(f.ID, "newid"))

	_, err = s.Query(f.ID)
	assert.True(t, errs.Is(err, errs.FileDoesNotExist))

	got, err := s.Query("newid")
	require.NoError(t, err)
	assert.Equal(t, "newid", got.ID)

	chunks, err := s.GetChunks("newid")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "deadbeef", chunks[0].BlobID)
}

func TestChangeIDReparentsChildren(t *testing.T) {
	s := newServerStore(t)
	dir, err := s.CreateDirectory(model.RootID, "d", model.Stat{Mode: 0755})
	require.NoError(t, err)
	f, err := s.CreateFile(dir.ID, "f", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)

	require.NoError(t, s.ChangeID(dir.ID, "newdir"))

	child, err := s.Query(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "newdir", child.Parent)

	byName, err := s.QueryByName("newdir", "f")
	require.NoError(t, err)
	assert.Equal(t, f.ID, byName.ID)
}

func TestTransactionRollsBackOnDrop(t *testing.T) {
	s := newServerStore(t)
	tx, err := s.Begin()
	require.NoError(t, err)
	_, err = tx.CreateFile(model.RootID, "ghost", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = s.QueryByName(model.RootID, "ghost")
	assert.True(t, errs.Is(err, errs.FileDoesNotExist))
}

func TestTransactionCommit(t *testing.T) {
	s := newServerStore(t)
	tx, err := s.Begin()
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = tx.CreateFile(model.RootID, "real", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	_, err = s.QueryByName(model.RootID, "real")
	assert.NoError(t, err)
}

func TestJournalOrderingAndRemoval(t *testing.T) {
	s, _ := newClientStore(t)
	seq1, err := s.AddJournalEntry("f1", []byte("op1"))
	require.NoError(t, err)
	seq2, err := s.AddJournalEntry("f2", []byte("op2"))
	require.NoError(t, err)
	assert.Less(t, seq1, seq2)

	entries, err := s.GetJournal()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []byte("op1"), entries[0].Operation)

	require.NoError(t, s.RemoveJournalItem(seq1))
	entries, err = s.GetJournal()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f2", entries[0].FileID)
}

func TestRemoveFileFromJournal(t *testing.T) {
	s, _ := newClientStore(t)
	_, err := s.AddJournalEntry("f1", []byte("a"))
	require.NoError(t, err)
	_, err = s.AddJournalEntry("f1", []byte("b"))
	require.NoError(t, err)
	_, err = s.AddJournalEntry("f2", []byte("c"))
	require.NoError(t, err)

	require.NoError(t, s.RemoveFileFromJournal("f1"))
	entries, err := s.GetJournal()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f2", entries[0].FileID)
}

func TestClearJournal(t *testing.T) {
	s, _ := newClientStore(t)
	_, err := s.AddJournalEntry("f1", []byte("a"))
	require.NoError(t, err)
	require.NoError(t, s.ClearJournal())
	entries, err := s.GetJournal()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssignTempIDRewritesID(t *testing.T) {
	s, gen := newClientStore(t)
	f, err := s.CreateFile(model.RootID, "f", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)
	gen.Reset()

	newID, err := s.AssignTempID(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "temp-00000000000000000000", newID)

	got, err := s.Query(newID)
	require.NoError(t, err)
	assert.Equal(t, newID, got.ID)
}

func TestUpdateRetrievedVersion(t *testing.T) {
	s, _ := newClientStore(t)
	f, err := s.CreateFile(model.RootID, "f", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)
	require.NoError(t, s.BumpVersions(f.ID, false, true))

	require.NoError(t, s.UpdateRetrievedVersion(f.ID))
	got, err := s.Query(f.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ContentVersion, got.RetrievedVersion)
}

func TestRemoveRemainingFilesPrunesUnlisted(t *testing.T) {
	s := newServerStore(t)
	keep, err := s.CreateFile(model.RootID, "keep", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)
	drop, err := s.CreateFile(model.RootID, "drop", model.Stat{FileType: model.RegularFile})
	require.NoError(t, err)

	require.NoError(t, s.RemoveRemainingFiles(model.RootID, map[string]struct{}{keep.ID: {}}))

	_, err = s.Query(keep.ID)
	assert.NoError(t, err)
	_, err = s.Query(drop.ID)
	assert.True(t, errs.Is(err, errs.FileDoesNotExist))
}
