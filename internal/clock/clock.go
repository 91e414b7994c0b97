// Package clock supplies the current time to everything that compares
// against "today", so date-dependent logic can be pinned in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func System() Clock { return systemClock{} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

// Func adapts a plain function, e.g. a test closure that advances time.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// Date truncates t to its calendar day in UTC, keeping t's own year/month/day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is Date(c.Now()).
func Today(c Clock) time.Time {
	return Date(c.Now())
}
