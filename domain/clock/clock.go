// Package clock provides the time source injected into the runtime.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

// Now implements Clock.
func (f Func) Now() time.Time { return f() }

// System is the wall clock.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now() }

// Manual is a clock that only moves when told to.
// Useful for deterministic sequencing in tests.
type Manual struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewManual creates a manual clock starting at start. Every call to Now
// advances the clock by step after returning the current value.
func NewManual(start time.Time, step time.Duration) *Manual {
	return &Manual{now: start, step: step}
}

// Now implements Clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.now
	m.now = m.now.Add(m.step)
	return t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

var (
	_ Clock = System{}
	_ Clock = (*Manual)(nil)
	_ Clock = Func(nil)
)
