// Package signal defines the message envelope delivered to agents.
package signal

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/clock"
	"github.com/felixgeelhaar/agent-runtime/domain/ident"
)

// Signal is an inbound message with a dot-segmented type such as
// "order.created". Signals are values and are never modified after New.
type Signal struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Data          map[string]any `json:"data,omitempty"`
	Source        string         `json:"source,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Time          time.Time      `json:"time"`
}

type options struct {
	id            string
	source        string
	correlationID string
	at            time.Time
	ids           ident.Generator
	clock         clock.Clock
}

// Option configures a signal at construction.
type Option func(*options)

// WithID sets the signal ID.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithSource sets the signal source.
func WithSource(source string) Option {
	return func(o *options) { o.source = source }
}

// WithCorrelationID sets the correlation ID.
func WithCorrelationID(id string) Option {
	return func(o *options) { o.correlationID = id }
}

// WithTime sets the signal timestamp.
func WithTime(t time.Time) Option {
	return func(o *options) { o.at = t }
}

// WithIDGenerator sets the generator used when neither ID nor
// correlation ID is given.
func WithIDGenerator(g ident.Generator) Option {
	return func(o *options) { o.ids = g }
}

// WithClock sets the time source used when no timestamp is given.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New creates a signal. The ID defaults to the correlation ID, and both
// are generated when absent.
func New(typ string, data map[string]any, opts ...Option) (Signal, error) {
	if err := ValidateType(typ); err != nil {
		return Signal{}, err
	}

	o := options{ids: ident.UUID{}, clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}

	if o.id == "" {
		o.id = o.correlationID
	}
	if o.id == "" {
		o.id = o.ids.NewID()
	}
	if o.correlationID == "" {
		o.correlationID = o.id
	}
	if o.at.IsZero() {
		o.at = o.clock.Now()
	}

	return Signal{
		ID:            o.id,
		Type:          typ,
		Data:          maps.Clone(data),
		Source:        o.source,
		CorrelationID: o.correlationID,
		Time:          o.at,
	}, nil
}

// MustNew is like New but panics on an invalid type.
func MustNew(typ string, data map[string]any, opts ...Option) Signal {
	s, err := New(typ, data, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateType checks that typ is a non-empty, dot-segmented identifier.
func ValidateType(typ string) error {
	if typ == "" {
		return fmt.Errorf("%w: empty", ErrInvalidType)
	}
	for _, seg := range strings.Split(typ, ".") {
		if seg == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidType, typ)
		}
	}
	return nil
}

// Segments returns the dot-separated parts of the signal type.
func (s Signal) Segments() []string {
	return strings.Split(s.Type, ".")
}

// CorrelationKey returns the identifier used to correlate side effects
// and replies with this signal.
func (s Signal) CorrelationKey() string {
	if s.CorrelationID != "" {
		return s.CorrelationID
	}
	return s.ID
}

// WithCorrelation returns a copy of the signal carrying the given
// correlation ID (and ID, when it had none).
func (s Signal) WithCorrelation(id string) Signal {
	s.CorrelationID = id
	if s.ID == "" {
		s.ID = id
	}
	return s
}
