package writebuffer

import (
	"fmt"
	"sort"
	"sync"
)

// Handle is a monotonic file handle, starting at 1.
type Handle uint64

// entry pairs the entity a handle refers to with its write buffer.
type entry struct {
	entityID string
	buf      *WriteBuffer
}

// OpenFileHandler maps file handles to (entity id, WriteBuffer). Opening
// a file is independent of cache freshness; callers refresh the entity
// and chunk list before the first read.
type OpenFileHandler struct {
	mu      sync.Mutex
	next    Handle
	entries map[Handle]*entry
}

// NewOpenFileHandler returns an empty handle table with the first handle starting at 1.
func NewOpenFileHandler() *OpenFileHandler {
	return &OpenFileHandler{next: 1, entries: make(map[Handle]*entry)}
}

// Open allocates a fresh handle for entityID.
func (h *OpenFileHandler) Open(entityID string) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	fh := h.next
	h.next++
	h.entries[fh] = &entry{entityID: entityID, buf: New()}
	return fh
}

// Close drops fh's entry without flushing; callers must Flush first if
// pending writes must not be lost.
func (h *OpenFileHandler) Close(fh Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.entries[fh]; !ok {
		return fmt.Errorf("writebuffer: unknown handle %d", fh)
	}
	delete(h.entries, fh)
	return nil
}

// Write appends op to fh's buffer and reports whether it should flush.
func (h *OpenFileHandler) Write(fh Handle, op Op) (bool, error) {
	e, err := h.lookup(fh)
	if err != nil {
		return false, err
	}
	return e.buf.Write(op), nil
}

// Flush drains fh's coalesced pending writes, returning the entity id
// they apply to alongside the coalesced op list.
func (h *OpenFileHandler) Flush(fh Handle) (string, []Op, error) {
	e, err := h.lookup(fh)
	if err != nil {
		return "", nil, err
	}
	return e.entityID, e.buf.Flush(), nil
}

// EntityID returns the entity a handle was opened against.
func (h *OpenFileHandler) EntityID(fh Handle) (string, error) {
	e, err := h.lookup(fh)
	if err != nil {
		return "", err
	}
	return e.entityID, nil
}

// ListOpen returns every currently open handle, ascending.
func (h *OpenFileHandler) ListOpen() []Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Handle, 0, len(h.entries))
	for fh := range h.entries {
		out = append(out, fh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (h *OpenFileHandler) lookup(fh Handle) (*entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[fh]
	if !ok {
		return nil, fmt.Errorf("writebuffer: unknown handle %d", fh)
	}
	return e, nil
}

// FlushResult is one file's coalesced pending writes, as returned by
// CloseAll.
type FlushResult struct {
	Handle   Handle
	EntityID string
	Ops      []Op
}

// CloseAll flushes every open file in turn, in ascending handle order,
// and closes them. Used on process shutdown, where the filesystem's
// drop path must flush every buffered write before exiting.
func (h *OpenFileHandler) CloseAll() []FlushResult {
	var results []FlushResult
	for _, fh := range h.ListOpen() {
		entityID, ops, err := h.Flush(fh)
		if err != nil {
			continue
		}
		_ = h.Close(fh)
		results = append(results, FlushResult{Handle: fh, EntityID: entityID, Ops: ops})
	}
	return results
}
