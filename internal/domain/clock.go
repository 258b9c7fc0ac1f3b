package domain

import "github.com/jonboulle/clockwork"

// clock stamps ProcessedAt on new predictions. Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the prediction time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
