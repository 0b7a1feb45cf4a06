package wait

import (
	"context"
	"strings"
	"time"

	"github.com/termpilot/termpilot/internal/logging"
	"github.com/termpilot/termpilot/internal/vom"
)

// Target is the session surface the engine polls. Refresh drains pending
// PTY output into the emulator; the read methods observe the refreshed
// screen.
type Target interface {
	Refresh() error
	ScreenText() (string, error)
	LookupElement(ref string) (vom.ElementRef, bool, error)
}

// Result is the outcome of one wait.
type Result struct {
	Found     bool
	ElapsedMs int64
}

// Engine evaluates conditions against a Target on a fixed poll interval.
// The interval is independent of condition type.
type Engine struct {
	Poll          time.Duration
	StableSamples int
	Logger        *logging.Logger
}

// NewEngine returns an engine with the given poll interval and stability
// sample count.
func NewEngine(poll time.Duration, stableSamples int, logger *logging.Logger) *Engine {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Engine{Poll: poll, StableSamples: stableSamples, Logger: logger}
}

// Wait polls until the condition holds or timeout elapses. Each tick
// refreshes the target, evaluates the condition, and only then checks the
// deadline, so a condition satisfied exactly at the boundary still counts
// as found. Total wait time overshoots timeout by at most one poll
// interval. A context cancellation ends the wait early with the context's
// error.
func (e *Engine) Wait(ctx context.Context, target Target, cond Condition, timeout time.Duration) (Result, error) {
	start := time.Now()
	tracker := NewStableTracker(e.StableSamples)

	for {
		if err := target.Refresh(); err != nil {
			return Result{ElapsedMs: time.Since(start).Milliseconds()}, err
		}

		ok, err := e.evaluate(target, cond, tracker)
		if err != nil {
			return Result{ElapsedMs: time.Since(start).Milliseconds()}, err
		}
		if ok {
			elapsed := time.Since(start)
			e.Logger.Debug("wait condition met", "kind", int(cond.Kind), "elapsed_ms", elapsed.Milliseconds())
			return Result{Found: true, ElapsedMs: elapsed.Milliseconds()}, nil
		}

		if time.Since(start) >= timeout {
			elapsed := time.Since(start)
			e.Logger.Debug("wait timed out", "kind", int(cond.Kind), "elapsed_ms", elapsed.Milliseconds())
			return Result{ElapsedMs: elapsed.Milliseconds()}, nil
		}

		select {
		case <-ctx.Done():
			return Result{ElapsedMs: time.Since(start).Milliseconds()}, ctx.Err()
		case <-time.After(e.Poll):
		}
	}
}

// evaluate checks one condition against the target's current screen.
func (e *Engine) evaluate(target Target, cond Condition, tracker *StableTracker) (bool, error) {
	switch cond.Kind {
	case KindText, KindTextGone:
		text, err := target.ScreenText()
		if err != nil {
			return false, err
		}
		contains := strings.Contains(text, cond.Text)
		if cond.Kind == KindText {
			return contains, nil
		}
		return !contains, nil

	case KindElement:
		_, ok, err := target.LookupElement(cond.Ref)
		return ok, err

	case KindFocused:
		el, ok, err := target.LookupElement(cond.Ref)
		if err != nil {
			return false, err
		}
		return ok && el.Focused, nil

	case KindNotVisible:
		_, ok, err := target.LookupElement(cond.Ref)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case KindValue:
		el, ok, err := target.LookupElement(cond.Ref)
		if err != nil {
			return false, err
		}
		return ok && el.Value == cond.Expected, nil

	case KindStable:
		text, err := target.ScreenText()
		if err != nil {
			return false, err
		}
		return tracker.Add(vom.ContentHash(text)), nil

	default:
		return false, nil
	}
}
