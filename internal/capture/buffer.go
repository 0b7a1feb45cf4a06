// Package capture provides bounded buffers for process output and
// per-session diagnostics.
//
// RingBuffer is a thread-safe circular byte buffer used as the PTY output
// inbox: the reader goroutine writes into it, and Session.Update drains it
// into the terminal emulator. EntryRing is a bounded FIFO of structured
// entries used for trace and error histories, where the oldest entries are
// dropped first.
package capture

import "sync"

// RingBuffer is a thread-safe circular buffer for capturing output streams.
// When the buffer fills, new data overwrites the oldest data, so it always
// holds the most recent N bytes without unbounded growth.
//
// The buffer maintains two pointers: start (oldest byte) and end (next write
// position). Once full, both advance together, sliding a window over the
// stream. RingBuffer implements io.Writer.
type RingBuffer struct {
	data  []byte
	size  int
	start int
	end   int
	full  bool
	mu    sync.RWMutex
}

// NewRingBuffer creates a ring buffer holding the most recent size bytes.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write appends data, implementing io.Writer. Write always succeeds and
// returns len(p), nil; when p exceeds remaining capacity the oldest bytes
// are overwritten.
func (r *RingBuffer) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n = len(p)

	for _, b := range p {
		r.data[r.end] = b
		r.end = (r.end + 1) % r.size

		if r.full {
			r.start = (r.start + 1) % r.size
		}

		if r.end == r.start {
			r.full = true
		}
	}

	return n, nil
}

// Bytes returns a copy of all buffered data in chronological order.
func (r *RingBuffer) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.bytesLocked()
}

// bytesLocked copies out the buffered bytes (caller must hold a lock).
func (r *RingBuffer) bytesLocked() []byte {
	if !r.full && r.start == 0 {
		return append([]byte(nil), r.data[:r.end]...)
	}

	result := make([]byte, 0, r.lenLocked())
	if r.full || r.end < r.start {
		result = append(result, r.data[r.start:]...)
		result = append(result, r.data[:r.end]...)
	} else {
		result = append(result, r.data[r.start:r.end]...)
	}

	return result
}

// TakeAll returns the buffered bytes and clears the buffer in one lock
// acquisition. Session.Update uses this to drain the PTY inbox without
// racing concurrent reader writes.
func (r *RingBuffer) TakeAll() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.bytesLocked()
	r.start = 0
	r.end = 0
	r.full = false
	return out
}

// Len returns the number of bytes currently stored.
func (r *RingBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lenLocked()
}

// lenLocked returns the byte count (caller must hold a lock).
func (r *RingBuffer) lenLocked() int {
	if r.full {
		return r.size
	}

	if r.end >= r.start {
		return r.end - r.start
	}

	return r.size - r.start + r.end
}

// Reset clears the buffer, retaining the underlying memory.
func (r *RingBuffer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.start = 0
	r.end = 0
	r.full = false
}
