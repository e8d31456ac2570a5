package capture

import "time"

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop cancels the callback. Returns false if it already ran or was stopped.
	Stop() bool
}

// Scheduler schedules one-shot callbacks.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(d time.Duration, f func()) Timer

// AfterFunc calls fn(d, f).
func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) Timer {
	return fn(d, f)
}

// RealScheduler runs callbacks on their own goroutine via time.AfterFunc.
// Callers that need serial delivery wrap it, as Loop does.
type RealScheduler struct{}

// AfterFunc schedules f after d.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
