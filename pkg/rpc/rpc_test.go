package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
)

func TestCborCodecRoundTripsApplyJournalResponse(t *testing.T) {
	c := cborCodec{}
	resp := &ApplyJournalResponse{
		AssignedIDs: []string{"a1", "a2"},
		DirEntities: []model.DirEntity{{ID: "a1", Name: "f"}},
		Error:       &JournalError{Kind: JournalErrorConflictingFiles, IDs: []string{"a1"}},
	}

	data, err := c.Marshal(resp)
	require.NoError(t, err)

	var got ApplyJournalResponse
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, resp.AssignedIDs, got.AssignedIDs)
	assert.Equal(t, resp.DirEntities, got.DirEntities)
	require.NotNil(t, got.Error)
	assert.Equal(t, JournalErrorConflictingFiles, got.Error.Kind)
}

func TestCborCodecName(t *testing.T) {
	assert.Equal(t, "cbor", cborCodec{}.Name())
}

func TestStatusTrailerRoundTrip(t *testing.T) {
	st := errs.New(errs.ConflictedFile, "conflict on %s", "f1").WithDetails([]byte("f1,f2"))
	md := SetTrailerStatus(nil, st)

	got := StatusFromTrailer(md, st.Message)
	assert.Equal(t, errs.ConflictedFile, got.Kind)
	assert.Equal(t, []byte("f1,f2"), got.Details)
}

func TestStatusFromTrailerDefaultsToDatabaseError(t *testing.T) {
	got := StatusFromTrailer(nil, "boom")
	assert.Equal(t, errs.DatabaseError, got.Kind)
}
