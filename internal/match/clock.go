package match

import "time"

// Timer is a cancelable one-shot timer handle. Stop is idempotent: stopping
// an already-fired or already-stopped timer is a no-op.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The production implementation delegates to
// time.AfterFunc; tests substitute a manually advanced clock so timer
// re-arming can be asserted deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewClock returns the wall clock
func NewClock() Clock {
	return realClock{}
}
