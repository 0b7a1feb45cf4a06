package wait

import (
	"context"
	"testing"
	"time"

	"github.com/termpilot/termpilot/internal/vom"
)

func TestStableTrackerSequence(t *testing.T) {
	tracker := NewStableTracker(3)
	hashes := []string{"screen1", "screen2", "screen3", "stable", "stable", "stable"}
	want := []bool{false, false, false, false, false, true}
	for i, h := range hashes {
		if got := tracker.Add(h); got != want[i] {
			t.Errorf("Add(%q) [#%d] = %v, want %v", h, i, got, want[i])
		}
	}
}

func TestStableTrackerRestartOnChange(t *testing.T) {
	tracker := NewStableTracker(2)
	tracker.Add("a")
	if tracker.Add("b") {
		t.Error("changed hash should not be stable")
	}
	if !tracker.Add("b") {
		t.Error("second consecutive hash should be stable")
	}
}

func TestStableTrackerReset(t *testing.T) {
	tracker := NewStableTracker(2)
	tracker.Add("a")
	tracker.Add("a")
	tracker.Reset()
	if tracker.Add("a") {
		t.Error("first add after reset should not be stable")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		cond string
		text string
		ref  string
		want Condition
		ok   bool
	}{
		{"stable", "stable", "", "", Condition{Kind: KindStable}, true},
		{"text gone", "text_gone", "x", "", Condition{Kind: KindTextGone, Text: "x"}, true},
		{"text", "text", "ready", "", Condition{Kind: KindText, Text: "ready"}, true},
		{"element", "element", "", "e3", Condition{Kind: KindElement, Ref: "e3"}, true},
		{"focused", "focused", "", "e1", Condition{Kind: KindFocused, Ref: "e1"}, true},
		{"not visible", "not_visible", "", "e1", Condition{Kind: KindNotVisible, Ref: "e1"}, true},
		{"value", "value", "42", "e2", Condition{Kind: KindValue, Ref: "e2", Expected: "42"}, true},
		{"unknown with fallback text", "bogus", "done", "", Condition{Kind: KindText, Text: "done"}, true},
		{"unknown without fallback", "bogus", "", "", Condition{}, false},
		{"empty everything", "", "", "", Condition{}, false},
		{"text without needle", "text", "", "", Condition{}, false},
		{"element without ref", "element", "", "", Condition{}, false},
		{"ansi stripped from text", "text", "\x1b[31mred\x1b[0m", "", Condition{Kind: KindText, Text: "red"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.cond, tt.text, tt.ref)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Parse(%q, %q, %q) = %+v, %v; want %+v, %v",
					tt.cond, tt.text, tt.ref, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// fakeTarget serves a scripted sequence of screens, one per Refresh.
type fakeTarget struct {
	screens  []string
	elements map[string]vom.ElementRef
	tick     int
}

func (f *fakeTarget) Refresh() error {
	if f.tick < len(f.screens)-1 {
		f.tick++
	}
	return nil
}

func (f *fakeTarget) ScreenText() (string, error) {
	if len(f.screens) == 0 {
		return "", nil
	}
	return f.screens[f.tick], nil
}

func (f *fakeTarget) LookupElement(ref string) (vom.ElementRef, bool, error) {
	el, ok := f.elements[ref]
	return el, ok, nil
}

func newEngine() *Engine {
	return NewEngine(time.Millisecond, 3, nil)
}

func TestWaitTextFound(t *testing.T) {
	target := &fakeTarget{screens: []string{"", "loading", "build complete"}}
	cond, _ := Parse("text", "complete", "")

	res, err := newEngine().Wait(context.Background(), target, cond, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Found {
		t.Error("expected condition to be found")
	}
}

func TestWaitTextGone(t *testing.T) {
	target := &fakeTarget{screens: []string{"spinner", "spinner", "done"}}
	cond, _ := Parse("text_gone", "spinner", "")

	res, err := newEngine().Wait(context.Background(), target, cond, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Found {
		t.Error("expected spinner to disappear")
	}
}

func TestWaitTimeout(t *testing.T) {
	target := &fakeTarget{screens: []string{"never matches"}}
	cond, _ := Parse("text", "missing", "")

	start := time.Now()
	res, err := newEngine().Wait(context.Background(), target, cond, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Found {
		t.Error("condition should not be found")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned before the deadline: %v", elapsed)
	}
	if res.ElapsedMs < 20 {
		t.Errorf("elapsed_ms = %d, want >= 20", res.ElapsedMs)
	}
}

func TestWaitConditionCheckedBeforeDeadline(t *testing.T) {
	// A condition satisfiable on the very first tick counts as found even
	// with a zero timeout.
	target := &fakeTarget{screens: []string{"ready"}}
	cond, _ := Parse("text", "ready", "")

	res, err := newEngine().Wait(context.Background(), target, cond, 0)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Found {
		t.Error("condition satisfied at the deadline boundary should count as found")
	}
}

func TestWaitElementConditions(t *testing.T) {
	target := &fakeTarget{
		screens: []string{""},
		elements: map[string]vom.ElementRef{
			"e1": {Role: vom.RoleInput, Focused: true, Value: "hello"},
		},
	}

	tests := []struct {
		name  string
		cond  string
		text  string
		ref   string
		found bool
	}{
		{"element present", "element", "", "e1", true},
		{"element absent", "element", "", "e9", false},
		{"focused", "focused", "", "e1", true},
		{"not visible on absent", "not_visible", "", "e9", true},
		{"not visible on present", "not_visible", "", "e1", false},
		{"value match", "value", "hello", "e1", true},
		{"value mismatch", "value", "other", "e1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, ok := Parse(tt.cond, tt.text, tt.ref)
			if !ok {
				t.Fatal("parse failed")
			}
			res, err := newEngine().Wait(context.Background(), target, cond, 10*time.Millisecond)
			if err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if res.Found != tt.found {
				t.Errorf("found = %v, want %v", res.Found, tt.found)
			}
		})
	}
}

func TestWaitStable(t *testing.T) {
	target := &fakeTarget{screens: []string{"a", "b", "c", "c", "c", "c"}}
	cond, _ := Parse("stable", "", "")

	res, err := newEngine().Wait(context.Background(), target, cond, time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Found {
		t.Error("screen should stabilize")
	}
}

func TestWaitContextCanceled(t *testing.T) {
	target := &fakeTarget{screens: []string{"never"}}
	cond, _ := Parse("text", "missing", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine().Wait(ctx, target, cond, time.Second)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
