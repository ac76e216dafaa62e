package telemetry

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
)

// DefaultRingSize is the capacity used when NewRing receives a non-positive size.
const DefaultRingSize = 256

// Ring is a thread-safe, bounded event buffer that drops the oldest events
// when full. Servers in debug mode record into one.
type Ring struct {
	mu      sync.Mutex
	events  []telemetry.Event
	max     int
	written int64 // total events ever written (including dropped)
}

// NewRing creates a ring holding at most size events.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{
		events: make([]telemetry.Event, 0, min(size, 64)),
		max:    size,
	}
}

// Emit implements telemetry.Emitter.
func (r *Ring) Emit(_ context.Context, event telemetry.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	r.written++
	if len(r.events) > r.max {
		r.events = append(r.events[:0:0], r.events[len(r.events)-r.max:]...)
	}
}

// Events returns the buffered events, oldest first.
func (r *Ring) Events() []telemetry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]telemetry.Event(nil), r.events...)
}

// Len returns the number of buffered events.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// TotalWritten returns the number of events ever recorded, including dropped ones.
func (r *Ring) TotalWritten() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Reset discards every buffered event.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = r.events[:0]
}

var _ telemetry.Emitter = (*Ring)(nil)
