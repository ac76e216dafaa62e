// Package thread provides the append-only execution log attached to an agent.
package thread

import (
	"maps"
	"time"
)

// Kind classifies a thread entry.
type Kind string

const (
	KindInstructionStart Kind = "instruction_start"
	KindInstructionEnd   Kind = "instruction_end"
	KindNote             Kind = "note"
	KindMessage          Kind = "message"
)

// Valid reports whether k is a known entry kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInstructionStart, KindInstructionEnd, KindNote, KindMessage:
		return true
	}
	return false
}

// Status values recorded on instruction_end entries.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is a single record in a thread. Seq is assigned by the thread
// and is strictly increasing without gaps.
type Entry struct {
	ID      string         `json:"id"`
	Seq     uint64         `json:"seq"`
	At      time.Time      `json:"at"`
	Kind    Kind           `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
	Refs    map[string]any `json:"refs,omitempty"`
}

func (e Entry) clone() Entry {
	e.Payload = maps.Clone(e.Payload)
	e.Refs = maps.Clone(e.Refs)
	return e
}
