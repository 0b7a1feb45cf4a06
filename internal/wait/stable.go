package wait

// StableTracker reports screen stability: it is fed one content hash per
// poll and fires once the required number of consecutive identical hashes
// has been observed.
type StableTracker struct {
	required int
	last     string
	streak   int
}

// NewStableTracker returns a tracker that fires after n consecutive equal
// hashes. n below 1 is treated as 1.
func NewStableTracker(n int) *StableTracker {
	if n < 1 {
		n = 1
	}
	return &StableTracker{required: n}
}

// Add records one hash and reports whether the stability threshold has
// been reached. A hash differing from the previous one restarts the
// streak at 1.
func (t *StableTracker) Add(hash string) bool {
	if t.streak > 0 && hash == t.last {
		t.streak++
	} else {
		t.streak = 1
	}
	t.last = hash
	return t.streak >= t.required
}

// Reset clears the streak, for reusing the tracker across waits.
func (t *StableTracker) Reset() {
	t.streak = 0
	t.last = ""
}
