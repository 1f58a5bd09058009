// Package clock abstracts wall time and scheduled callbacks so timer-driven
// components can be driven deterministically in tests.
package clock

import "time"

// Timer is a cancelable scheduled callback
type Timer interface {
	// Stop cancels the callback. Stopping an already stopped or fired timer is a no-op.
	Stop() bool
}

// Clock provides the current time and schedules callbacks
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is a Clock backed by the time package
type Real struct{}

// New returns the system clock
func New() Real {
	return Real{}
}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
