package monitor

import "time"

// Clock abstracts wall time and timer scheduling so the backoff state
// machine can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules fn after d and returns a cancellable handle.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop cancels the timer. Returns false if it already fired.
	Stop() bool
}

// RealClock implements Clock using the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
