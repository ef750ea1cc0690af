package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
// Archive availability is judged relative to "now", so tests inject a fake
// clock for deterministic validation.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for archive range validation. Pass nil to
// reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
