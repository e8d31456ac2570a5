package capture

import (
	"sort"
	"time"
)

// fakeClock is a manual clock whose timers fire synchronously from Advance.
type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	target := c.now.Add(d)
	for {
		due := c.pending(target)
		if len(due) == 0 {
			break
		}
		t := due[0]
		c.now = t.at
		t.fired = true
		t.f()
	}
	c.now = target
}

func (c *fakeClock) pending(until time.Time) []*fakeTimer {
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(until) {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	return due
}

// Active returns the number of timers that are neither stopped nor fired.
func (c *fakeClock) Active() int {
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
