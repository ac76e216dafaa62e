package thread

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/agent-runtime/domain/clock"
	"github.com/felixgeelhaar/agent-runtime/domain/ident"
)

// Thread is an ordered execution trace. Only the owning agent server
// appends; readers receive copies.
type Thread struct {
	id      string
	entries []Entry
	seq     uint64
	clock   clock.Clock
	ids     ident.Generator
	mu      sync.RWMutex
}

// Option configures a thread.
type Option func(*Thread)

// WithClock sets the time source used for entry timestamps.
func WithClock(c clock.Clock) Option {
	return func(t *Thread) { t.clock = c }
}

// WithIDGenerator sets the generator used for entry IDs.
func WithIDGenerator(g ident.Generator) Option {
	return func(t *Thread) { t.ids = g }
}

// New creates an empty thread.
func New(id string, opts ...Option) *Thread {
	t := &Thread{
		id:      id,
		entries: make([]Entry, 0),
		clock:   clock.System{},
		ids:     ident.UUID{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the thread identifier.
func (t *Thread) ID() string {
	return t.id
}

// Append records a new entry and returns it.
func (t *Thread) Append(kind Kind, payload, refs map[string]any) (Entry, error) {
	if !kind.Valid() {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	e := Entry{
		ID:      t.ids.NewID(),
		Seq:     t.seq,
		At:      t.clock.Now(),
		Kind:    kind,
		Payload: payload,
		Refs:    refs,
	}
	t.entries = append(t.entries, e)
	return e.clone(), nil
}

// Entries returns a copy of all entries in sequence order.
func (t *Thread) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		entries[i] = e.clone()
	}
	return entries
}

// EntriesByKind returns entries of the given kind.
func (t *Thread) EntriesByKind(kind Kind) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var filtered []Entry
	for _, e := range t.entries {
		if e.Kind == kind {
			filtered = append(filtered, e.clone())
		}
	}
	return filtered
}

// Last returns the most recent entry, or nil if empty.
func (t *Thread) Last() *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.entries) == 0 {
		return nil
	}
	e := t.entries[len(t.entries)-1].clone()
	return &e
}

// Clone returns an independent thread with the same entries, sequence,
// clock and ID generator.
func (t *Thread) Clone() *Thread {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c := &Thread{
		id:      t.id,
		entries: make([]Entry, len(t.entries)),
		seq:     t.seq,
		clock:   t.clock,
		ids:     t.ids,
	}
	for i, e := range t.entries {
		c.entries[i] = e.clone()
	}
	return c
}

// Len returns the number of entries.
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// RecordInstructionStart appends an instruction_start entry.
func (t *Thread) RecordInstructionStart(instructionID, action, correlationID string) Entry {
	e, _ := t.Append(KindInstructionStart,
		map[string]any{"action": action},
		map[string]any{"instruction_id": instructionID, "correlation_id": correlationID},
	)
	return e
}

// RecordInstructionEnd appends an instruction_end entry with status ok or error.
func (t *Thread) RecordInstructionEnd(instructionID, action, correlationID string, err error) Entry {
	payload := map[string]any{"action": action, "status": StatusOK}
	if err != nil {
		payload["status"] = StatusError
		payload["error"] = err.Error()
	}
	e, _ := t.Append(KindInstructionEnd, payload,
		map[string]any{"instruction_id": instructionID, "correlation_id": correlationID},
	)
	return e
}

// RecordMessage appends a message entry for a received signal.
func (t *Thread) RecordMessage(signalID, signalType, correlationID string) Entry {
	e, _ := t.Append(KindMessage,
		map[string]any{"type": signalType},
		map[string]any{"signal_id": signalID, "correlation_id": correlationID},
	)
	return e
}

// RecordNote appends a free-form note.
func (t *Thread) RecordNote(text string, refs map[string]any) Entry {
	e, _ := t.Append(KindNote, map[string]any{"text": text}, refs)
	return e
}
