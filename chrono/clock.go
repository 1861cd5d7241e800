// Package chrono supplies the civil-time clock source and the season
// calendar math. Everything time-dependent in the engine goes through a
// *Clock so tests can drive it with a clockwork fake.
package chrono

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock pairs a clockwork clock with the fixed civil timezone the
// competition calendar runs in.
type Clock struct {
	clockwork.Clock
	loc *time.Location
}

func New(inner clockwork.Clock, loc *time.Location) *Clock {
	return &Clock{Clock: inner, loc: loc}
}

// NewReal returns a wall clock in the given timezone.
func NewReal(loc *time.Location) *Clock {
	return New(clockwork.NewRealClock(), loc)
}

// Now returns the current time expressed in the civil timezone.
func (c *Clock) Now() time.Time {
	return c.Clock.Now().In(c.loc)
}

func (c *Clock) Location() *time.Location {
	return c.loc
}
