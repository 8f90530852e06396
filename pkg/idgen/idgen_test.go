package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthoritativeIDIsSixteenBytesHex(t *testing.T) {
	id := NewAuthoritativeID()
	assert.Len(t, id, 32)
	for _, r := range id {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'))
	}
}

func TestNewAuthoritativeIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewAuthoritativeID(), NewAuthoritativeID())
}

func TestTempIDGeneratorSequence(t *testing.T) {
	g := NewTempIDGenerator()
	assert.Equal(t, "temp-00000000000000000000", g.Next())
	assert.Equal(t, "temp-00000000000000000001", g.Next())
	g.Reset()
	assert.Equal(t, "temp-00000000000000000000", g.Next())
}

func TestTempOrdinal(t *testing.T) {
	n, err := TempOrdinal("temp-00000000000000000042")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = TempOrdinal("not-a-temp-id")
	assert.Error(t, err)
}

func TestIsTempID(t *testing.T) {
	assert.True(t, IsTempID("temp-00000000000000000000"))
	assert.False(t, IsTempID("deadbeefdeadbeefdeadbeefdeadbeef"))
}
