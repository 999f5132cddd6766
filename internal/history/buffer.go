// Package history keeps a bounded, insertion-ordered trail of scan results
// for the trend display.
package history

import "github.com/Dicklesworthstone/devdiag/internal/model"

// DefaultCapacity is the number of entries kept for the trend display.
const DefaultCapacity = 20

// Buffer is a fixed-capacity FIFO of history entries. Once full, each Append
// evicts the oldest entry. Buffer is not safe for concurrent mutation; the
// scanner only appends while it holds the scanning flag.
type Buffer struct {
	entries []model.HistoryEntry
	start   int
	size    int
}

// New returns an empty buffer holding at most capacity entries. A
// non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{entries: make([]model.HistoryEntry, capacity)}
}

// Append inserts e at the tail, evicting the head when over capacity.
func (b *Buffer) Append(e model.HistoryEntry) {
	c := len(b.entries)
	if b.size < c {
		b.entries[(b.start+b.size)%c] = e
		b.size++
		return
	}
	b.entries[b.start] = e
	b.start = (b.start + 1) % c
}

// Snapshot returns the entries oldest first. The slice is a copy.
func (b *Buffer) Snapshot() []model.HistoryEntry {
	out := make([]model.HistoryEntry, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.entries[(b.start+i)%len(b.entries)]
	}
	return out
}

// Len returns the number of stored entries.
func (b *Buffer) Len() int { return b.size }

// Cap returns the maximum number of stored entries.
func (b *Buffer) Cap() int { return len(b.entries) }
