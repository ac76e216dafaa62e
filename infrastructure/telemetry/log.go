package telemetry

import (
	"context"
	"sort"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/logging"
)

// LogEmitter writes every event to a logger at debug level.
type LogEmitter struct {
	logger *bolt.Logger
}

// NewLogEmitter creates a log emitter. A nil logger uses the default logger.
func NewLogEmitter(logger *bolt.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit implements telemetry.Emitter.
func (l *LogEmitter) Emit(_ context.Context, event telemetry.Event) {
	logger := l.logger
	if logger == nil {
		logger = logging.Get()
	}

	e := logger.Debug().Str("event", event.Name)
	for _, k := range sortedKeys(event.Metadata) {
		if s, ok := event.Metadata[k].(string); ok {
			e = e.Str(k, s)
		}
	}
	for k, v := range event.Measurements {
		e = e.Int64(k, int64(v))
	}
	e.Msg("telemetry")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ telemetry.Emitter = (*LogEmitter)(nil)
