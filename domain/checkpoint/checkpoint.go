package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Version is the current checkpoint encoding version.
const Version = 1

// Checkpoint is the persisted form of an agent.
type Checkpoint struct {
	Version   int            `json:"version"`
	AgentID   string         `json:"agent_id"`
	State     map[string]any `json:"state"`
	Status    string         `json:"status"`
	Actions   []string       `json:"actions,omitempty"`
	ThreadLen int            `json:"thread_len,omitempty"`
	SavedAt   time.Time      `json:"saved_at"`
}

// Encode serializes the checkpoint.
func (c Checkpoint) Encode() ([]byte, error) {
	if c.Version == 0 {
		c.Version = Version
	}
	return json.Marshal(c)
}

// Decode parses an encoded checkpoint.
func Decode(data []byte) (Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return Checkpoint{}, errors.Join(ErrCorrupt, err)
	}
	if c.AgentID == "" {
		return Checkpoint{}, fmt.Errorf("%w: missing agent id", ErrCorrupt)
	}
	if c.Version > Version {
		return Checkpoint{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, c.Version)
	}
	if c.State == nil {
		c.State = make(map[string]any)
	}
	return c, nil
}

// Key builds the storage key for an agent.
func Key(prefix, agentID string) string {
	return prefix + agentID
}
