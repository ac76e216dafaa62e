// Package ident provides the identifier generator injected into the runtime.
package ident

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique identifiers.
type Generator interface {
	NewID() string
}

// Func adapts a plain function to the Generator interface.
type Func func() string

// NewID implements Generator.
func (f Func) NewID() string { return f() }

// UUID generates random version 4 UUIDs.
type UUID struct{}

// NewID implements Generator.
func (UUID) NewID() string { return uuid.NewString() }

// Sequence generates prefix-1, prefix-2, ... and is safe for concurrent use.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence creates a deterministic generator with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewID implements Generator.
func (s *Sequence) NewID() string {
	return s.prefix + "-" + strconv.FormatUint(s.n.Add(1), 10)
}

var (
	_ Generator = UUID{}
	_ Generator = (*Sequence)(nil)
	_ Generator = Func(nil)
)
