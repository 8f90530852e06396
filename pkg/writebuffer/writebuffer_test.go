package writebuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/nimbusfs/pkg/model"
)

func TestFlushCoalescesAdjacentWrites(t *testing.T) {
	b := New()
	b.Write(Op{Offset: 0, Data: []byte("hello")})
	b.Write(Op{Offset: 5, Data: []byte("world")})

	ops := b.Flush()
	require.Len(t, ops, 1)
	assert.Equal(t, int64(0), ops[0].Offset)
	assert.Equal(t, []byte("helloworld"), ops[0].Data)
}

func TestFlushKeepsNonAdjacentWritesSeparate(t *testing.T) {
	b := New()
	b.Write(Op{Offset: 0, Data: []byte("a")})
	b.Write(Op{Offset: 10, Data: []byte("b")})

	ops := b.Flush()
	require.Len(t, ops, 2)
	assert.Equal(t, int64(0), ops[0].Offset)
	assert.Equal(t, int64(10), ops[1].Offset)
}

func TestFlushSortsOutOfOrderWrites(t *testing.T) {
	b := New()
	b.Write(Op{Offset: 5, Data: []byte("world")})
	b.Write(Op{Offset: 0, Data: []byte("hello")})

	ops := b.Flush()
	require.Len(t, ops, 1)
	assert.Equal(t, []byte("helloworld"), ops[0].Data)
}

func TestFlushResetsBuffer(t *testing.T) {
	b := New()
	b.Write(Op{Offset: 0, Data: []byte("a")})
	b.Flush()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Flush())
}

func TestWriteSignalsFlushAtThreshold(t *testing.T) {
	b := New()
	almostFull := make([]byte, model.FlushThreshold-1)
	assert.False(t, b.Write(Op{Offset: 0, Data: almostFull}))
	assert.True(t, b.Write(Op{Offset: model.FlushThreshold - 1, Data: []byte("x")}))
}

func TestOpenFileHandlerHandlesStartAtOne(t *testing.T) {
	h := NewOpenFileHandler()
	fh1 := h.Open("e1")
	fh2 := h.Open("e2")
	assert.Equal(t, Handle(1), fh1)
	assert.Equal(t, Handle(2), fh2)
}

func TestOpenFileHandlerWriteAndFlush(t *testing.T) {
	h := NewOpenFileHandler()
	fh := h.Open("e1")

	should, err := h.Write(fh, Op{Offset: 0, Data: []byte("hi")})
	require.NoError(t, err)
	assert.False(t, should)

	id, ops, err := h.Flush(fh)
	require.NoError(t, err)
	assert.Equal(t, "e1", id)
	require.Len(t, ops, 1)
	assert.Equal(t, []byte("hi"), ops[0].Data)
}

func TestOpenFileHandlerListOpen(t *testing.T) {
	h := NewOpenFileHandler()
	fh1 := h.Open("e1")
	fh2 := h.Open("e2")
	assert.Equal(t, []Handle{fh1, fh2}, h.ListOpen())

	require.NoError(t, h.Close(fh1))
	assert.Equal(t, []Handle{fh2}, h.ListOpen())
}

func TestOpenFileHandlerUnknownHandle(t *testing.T) {
	h := NewOpenFileHandler()
	_, err := h.EntityID(Handle(99))
	assert.Error(t, err)
}

func TestCloseAllFlushesEveryBuffer(t *testing.T) {
	h := NewOpenFileHandler()
	fh1 := h.Open("e1")
	fh2 := h.Open("e2")
	_, err := h.Write(fh1, Op{Offset: 0, Data: []byte("a")})
	require.NoError(t, err)
	_, err = h.Write(fh2, Op{Offset: 0, Data: []byte("b")})
	require.NoError(t, err)

	results := h.CloseAll()
	require.Len(t, results, 2)
	assert.Empty(t, h.ListOpen())
}
