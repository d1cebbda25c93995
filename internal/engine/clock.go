package engine

import "time"

// Clock supplies signal timestamps.
//
// Production uses SystemClock. Tests inject a fixed clock so that emitted
// signals are byte-identical across runs.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
