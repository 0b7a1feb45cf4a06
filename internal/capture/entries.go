package capture

import (
	"sync"
	"time"
)

// Entry is one timestamped record in an EntryRing.
type Entry struct {
	Time time.Time
	Kind string
	Text string
}

// EntryRing is a thread-safe bounded FIFO of entries. When the ring is at
// capacity, appending drops the oldest entry. It backs the per-session trace
// and error histories.
type EntryRing struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

// NewEntryRing creates an EntryRing holding at most max entries.
// A max below 1 is treated as 1.
func NewEntryRing(max int) *EntryRing {
	if max < 1 {
		max = 1
	}
	return &EntryRing{
		entries: make([]Entry, 0, max),
		max:     max,
	}
}

// Append adds an entry, evicting the oldest when at capacity.
func (e *EntryRing) Append(kind, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.entries) == e.max {
		copy(e.entries, e.entries[1:])
		e.entries = e.entries[:e.max-1]
	}
	e.entries = append(e.entries, Entry{Time: time.Now(), Kind: kind, Text: text})
}

// Last returns copies of the most recent n entries, oldest first.
// n <= 0 or n larger than the stored count returns everything.
func (e *EntryRing) Last(n int) []Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if n <= 0 || n > len(e.entries) {
		n = len(e.entries)
	}
	out := make([]Entry, n)
	copy(out, e.entries[len(e.entries)-n:])
	return out
}

// Len returns the number of stored entries.
func (e *EntryRing) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}
