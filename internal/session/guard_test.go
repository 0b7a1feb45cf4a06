package session

import (
	"sync"
	"testing"
	"time"

	"github.com/termpilot/termpilot/internal/errors"
)

func TestGuardAcquireFree(t *testing.T) {
	g := NewGuard("test")
	start := time.Now()
	acq, err := g.Acquire(time.Second)
	if err != nil {
		t.Fatalf("Acquire on free guard: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("free guard took %v to acquire", elapsed)
	}
	if acq.Recovered {
		t.Error("free guard should not report recovery")
	}
	acq.Release()
}

func TestGuardAcquireHeldTimesOut(t *testing.T) {
	g := NewGuard("test")
	held, err := g.Acquire(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	start := time.Now()
	_, err = g.Acquire(50 * time.Millisecond)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout acquiring held guard")
	}
	var lte *errors.LockTimeoutError
	if !errors.As(err, &lte) {
		t.Fatalf("err = %T, want LockTimeoutError", err)
	}
	if !errors.IsRetryable(err) {
		t.Error("lock timeout must be retryable")
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, want >= 50ms", elapsed)
	}
}

func TestGuardReleaseUnblocksWaiter(t *testing.T) {
	g := NewGuard("test")
	held, _ := g.Acquire(time.Second)

	done := make(chan error, 1)
	go func() {
		acq, err := g.Acquire(2 * time.Second)
		if err == nil {
			acq.Release()
		}
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	held.Release()

	if err := <-done; err != nil {
		t.Fatalf("waiter failed after release: %v", err)
	}
}

func TestGuardPoisonRecovery(t *testing.T) {
	g := NewGuard("test")
	held, _ := g.Acquire(time.Second)
	_ = held
	g.Poison()

	acq, err := g.Acquire(time.Second)
	if err != nil {
		t.Fatalf("Acquire on poisoned guard: %v", err)
	}
	if !acq.Recovered {
		t.Error("acquisition of poisoned guard should report recovery")
	}
	if g.RecoveredCount() != 1 {
		t.Errorf("recovered count = %d, want 1", g.RecoveredCount())
	}
	acq.Release()
}

func TestGuardTryAcquire(t *testing.T) {
	g := NewGuard("test")
	acq, ok := g.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire on free guard failed")
	}
	if _, ok := g.TryAcquire(); ok {
		t.Error("TryAcquire on held guard succeeded")
	}
	acq.Release()
	if _, ok := g.TryAcquire(); !ok {
		t.Error("TryAcquire after release failed")
	}
}

func TestGuardMutualExclusion(t *testing.T) {
	g := NewGuard("test")
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				acq, err := g.Acquire(5 * time.Second)
				if err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}
				counter++
				acq.Release()
			}
		}()
	}
	wg.Wait()

	if counter != 200 {
		t.Errorf("counter = %d, want 200", counter)
	}
}

func TestJitterBounded(t *testing.T) {
	seed := jitterSeed()
	for _, backoff := range []time.Duration{time.Millisecond, 8 * time.Millisecond, 50 * time.Millisecond} {
		j := jitter(seed, backoff)
		if j < 0 || j > backoff/4 {
			t.Errorf("jitter(%v) = %v, want within [0, %v]", backoff, j, backoff/4)
		}
		if again := jitter(seed, backoff); again != j {
			t.Errorf("jitter not deterministic for same seed+backoff")
		}
	}
}
