// Package writebuffer implements the per-open-file write buffer and the
// open-file handle table: pending writes are coalesced on flush, and
// flushing is forced once the buffered byte total crosses
// FLUSH_THRESHOLD.
package writebuffer
