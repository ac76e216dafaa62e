package application

import (
	"fmt"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/ident"
	"github.com/felixgeelhaar/agent-runtime/domain/signal"
)

// Message is anything a server accepts: signal.Signal, agent.Instruction
// or agent.Batch.
type Message interface {
	CorrelationKey() string
}

// Reply is the terminal result of a Call.
type Reply struct {
	// CorrelationID identifies the message that produced the reply.
	CorrelationID string

	// State is a snapshot of the agent state after the batch.
	State map[string]any

	// Directives lists every directive the batch produced, in execution order.
	Directives []agent.Directive

	// Err joins the errors of all failed instructions, or carries the
	// routing error. Nil when every instruction succeeded.
	Err error
}

// envelope is a message admitted to the mailbox.
type envelope struct {
	msg           Message
	correlationID string
	reply         chan Reply
}

// admit validates a message and assigns missing identifiers. Instruction
// checks run against the live action set so invalid work is never queued.
func admit(msg Message, actions *agent.ActionSet, ids ident.Generator) (Message, string, error) {
	switch m := msg.(type) {
	case signal.Signal:
		if err := signal.ValidateType(m.Type); err != nil {
			return nil, "", err
		}
		if m.CorrelationKey() == "" {
			m = m.WithCorrelation(ids.NewID())
		}
		return m, m.CorrelationKey(), nil

	case *signal.Signal:
		if m == nil {
			return nil, "", fmt.Errorf("%w: nil signal", ErrUnsupportedMessage)
		}
		return admit(*m, actions, ids)

	case agent.Instruction:
		if err := m.Validate(actions); err != nil {
			return nil, "", err
		}
		m = m.Clone()
		if m.ID == "" {
			m.ID = ids.NewID()
		}
		return m, m.ID, nil

	case agent.Batch:
		if err := m.Validate(actions); err != nil {
			return nil, "", err
		}
		batch := make(agent.Batch, len(m))
		for i, inst := range m {
			inst = inst.Clone()
			if inst.ID == "" {
				inst.ID = ids.NewID()
			}
			batch[i] = inst
		}
		return batch, batch.CorrelationKey(), nil

	default:
		return nil, "", fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
	}
}
