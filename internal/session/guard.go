package session

import (
	"hash/fnv"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/termpilot/termpilot/internal/errors"
)

const (
	backoffInitial = time.Millisecond
	backoffCap     = 50 * time.Millisecond
)

// Guard state values.
const (
	guardFree int32 = iota
	guardHeld
	guardPoisoned
)

// Guard serializes all state-touching operations on one session. It is a
// try-lock with exponential backoff rather than a blocking mutex: a caller
// that cannot acquire within its timeout gets a retryable LockTimeoutError
// instead of queueing indefinitely.
//
// A holder that panics should mark the guard poisoned via Poison; the next
// acquirer recovers it, and the recovery is surfaced explicitly rather
// than hidden, so callers can log it and distrust intermediate state.
type Guard struct {
	id        string
	state     atomic.Int32
	recovered atomic.Uint64
}

// NewGuard returns a free guard labeled with the owning session's id. The
// label only appears in timeout errors.
func NewGuard(id string) *Guard {
	return &Guard{id: id}
}

// Acquired is the result of a successful acquisition.
type Acquired struct {
	// Recovered is true when this acquisition recovered a poisoned guard.
	Recovered bool

	guard *Guard
}

// Release returns the guard to the free state.
func (a *Acquired) Release() {
	a.guard.state.Store(guardFree)
}

// Acquire attempts to take the guard, backing off exponentially from 1ms
// up to a 50ms cap between attempts, until timeout elapses. Backoff sleeps
// carry a bounded jitter (at most a quarter of the current backoff),
// deterministic for a given goroutine and backoff value, to de-synchronize
// contending callers without making retry timing unpredictable.
func (g *Guard) Acquire(timeout time.Duration) (*Acquired, error) {
	start := time.Now()
	backoff := backoffInitial
	seed := jitterSeed()

	for {
		if g.state.CompareAndSwap(guardFree, guardHeld) {
			return &Acquired{guard: g}, nil
		}
		if g.state.CompareAndSwap(guardPoisoned, guardHeld) {
			g.recovered.Add(1)
			return &Acquired{guard: g, Recovered: true}, nil
		}

		elapsed := time.Since(start)
		if elapsed >= timeout {
			return nil, errors.NewLockTimeoutError(g.id, timeout.String())
		}

		sleep := backoff + jitter(seed, backoff)
		if remaining := timeout - elapsed; sleep > remaining {
			sleep = remaining
		}
		time.Sleep(sleep)

		backoff *= 2
		if backoff > backoffCap {
			backoff = backoffCap
		}
	}
}

// TryAcquire takes the guard only if it is immediately free (or poisoned).
func (g *Guard) TryAcquire() (*Acquired, bool) {
	if g.state.CompareAndSwap(guardFree, guardHeld) {
		return &Acquired{guard: g}, true
	}
	if g.state.CompareAndSwap(guardPoisoned, guardHeld) {
		g.recovered.Add(1)
		return &Acquired{guard: g, Recovered: true}, true
	}
	return nil, false
}

// Poison marks the guard as abandoned mid-operation. Holders call this
// from a recover path instead of Release.
func (g *Guard) Poison() {
	g.state.Store(guardPoisoned)
}

// RecoveredCount reports how many acquisitions recovered a poisoned guard.
func (g *Guard) RecoveredCount() uint64 {
	return g.recovered.Load()
}

// jitterSeed derives a per-goroutine seed from the address of a stack
// variable. Distinct goroutines run on distinct stacks, so contending
// callers get distinct (but stable within one acquisition) jitter
// sequences without needing goroutine identity.
func jitterSeed() uint64 {
	var anchor byte
	p := uintptr(unsafe.Pointer(&anchor))
	h := fnv.New64a()
	for i := 0; i < 8; i++ {
		h.Write([]byte{byte(p >> (8 * i))})
	}
	return h.Sum64()
}

// jitter returns a duration in [0, backoff/4], a pure function of seed and
// backoff.
func jitter(seed uint64, backoff time.Duration) time.Duration {
	bound := backoff / 4
	if bound <= 0 {
		return 0
	}
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(seed >> (8 * i))
		buf[8+i] = byte(uint64(backoff) >> (8 * i))
	}
	h.Write(buf[:])
	return time.Duration(h.Sum64() % uint64(bound+1))
}
