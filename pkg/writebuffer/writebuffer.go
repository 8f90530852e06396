package writebuffer

import (
	"sort"
	"sync"

	"github.com/nimbusfs/nimbusfs/pkg/model"
)

// Op is a single pending write: offset plus the bytes to place there.
type Op struct {
	Offset int64
	Data   []byte
}

func (o Op) end() int64 { return o.Offset + int64(len(o.Data)) }

// WriteBuffer is a per-open-file ordered set of pending writes, bounded
// by model.FlushThreshold bytes.
type WriteBuffer struct {
	mu    sync.Mutex
	ops   []Op
	total int
}

// New returns an empty write buffer.
func New() *WriteBuffer {
	return &WriteBuffer{}
}

// Write inserts op into the sorted set and returns whether the buffered
// byte total has crossed FLUSH_THRESHOLD.
func (b *WriteBuffer) Write(op Op) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := sort.Search(len(b.ops), func(i int) bool { return b.ops[i].Offset >= op.Offset })
	b.ops = append(b.ops, Op{})
	copy(b.ops[i+1:], b.ops[i:])
	b.ops[i] = op

	b.total += len(op.Data)
	return b.total >= model.FlushThreshold
}

// Flush takes ownership of the buffered set, returning it coalesced:
// consecutive ops where one run ends exactly where the next begins are
// merged into a single entry. The buffer is reset to empty.
func (b *WriteBuffer) Flush() []Op {
	b.mu.Lock()
	pending := b.ops
	b.ops = nil
	b.total = 0
	b.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	coalesced := make([]Op, 0, len(pending))
	cur := pending[0]
	for _, next := range pending[1:] {
		if cur.end() == next.Offset {
			merged := make([]byte, 0, len(cur.Data)+len(next.Data))
			merged = append(merged, cur.Data...)
			merged = append(merged, next.Data...)
			cur = Op{Offset: cur.Offset, Data: merged}
			continue
		}
		coalesced = append(coalesced, cur)
		cur = next
	}
	coalesced = append(coalesced, cur)
	return coalesced
}

// Len reports the number of currently buffered (uncoalesced) ops.
func (b *WriteBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}
