package config

import (
	"encoding/json"
)

// durationPattern matches Go duration strings such as "5s" or "1h30m".
const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
}

// GenerateSchema generates a JSON Schema for the runtime configuration.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/agent-runtime/runtime-config.schema.json",
		Title:       "Agent Runtime Configuration",
		Description: "Configuration schema for the agent runtime",
		Type:        "object",
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "Name of the runtime instance",
			},
			"instance_id": {
				Type:        "string",
				Description: "Stable instance identifier; generated when empty",
			},
			"server":     generateServerSchema(),
			"logging":    generateLoggingSchema(),
			"checkpoint": generateCheckpointSchema(),
			"resilience": generateResilienceSchema(),
			"telemetry":  generateTelemetrySchema(),
		},
		AdditionalProperties: boolPtr(false),
	}
}

func durationSchema(description, def string) *JSONSchema {
	s := &JSONSchema{
		Type:        "string",
		Description: description,
		Pattern:     durationPattern,
	}
	if def != "" {
		s.Default = def
	}
	return s
}

func generateServerSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Agent server behavior",
		Properties: map[string]*JSONSchema{
			"max_queue_size": {
				Type:        "integer",
				Description: "Maximum pending signals per agent",
				Default:     10000,
				Minimum:     floatPtr(0),
			},
			"mode": {
				Type:        "string",
				Description: "Queue processing mode",
				Enum:        []string{"auto", "step"},
				Default:     "auto",
			},
			"strategy": {
				Type:        "string",
				Description: "Instruction execution strategy",
				Enum:        []string{"direct", "halt_on_error"},
				Default:     "direct",
			},
			"call_timeout":     durationSchema("Default timeout for synchronous calls", "5s"),
			"shutdown_timeout": durationSchema("Grace period for stopping servers and children", "5s"),
			"thread": {
				Type:        "boolean",
				Description: "Record a thread log per agent",
			},
			"debug": {
				Type:        "boolean",
				Description: "Keep recent telemetry events in memory",
			},
			"debug_buffer_size": {
				Type:        "integer",
				Description: "Number of debug events retained",
				Default:     256,
				Minimum:     floatPtr(0),
			},
			"validate_on_batch": {
				Type:        "boolean",
				Description: "Validate agent state against its schema after each batch",
			},
		},
		AdditionalProperties: boolPtr(false),
	}
}

func generateLoggingSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Structured logging",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:    "string",
				Enum:    []string{"trace", "debug", "info", "warn", "error"},
				Default: "info",
			},
			"format": {
				Type:    "string",
				Enum:    []string{"console", "json"},
				Default: "console",
			},
		},
		AdditionalProperties: boolPtr(false),
	}
}

func generateCheckpointSchema() *JSONSchema {
	str := func(desc string) *JSONSchema {
		return &JSONSchema{Type: "string", Description: desc}
	}
	return &JSONSchema{
		Type:        "object",
		Description: "Agent checkpoint persistence",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type:        "string",
				Description: "Checkpoint store backend",
				Enum:        []string{"none", "memory", "filesystem", "redis", "badger", "sqlite", "postgres", "mongodb", "dynamodb"},
				Default:     "none",
			},
			"key_prefix": {
				Type:        "string",
				Description: "Prefix prepended to agent IDs",
				Default:     "agent:",
			},
			"restore_on_start": {
				Type:        "boolean",
				Description: "Restore agent state from the latest checkpoint",
			},
			"ttl":      durationSchema("Checkpoint expiry; zero keeps forever", ""),
			"dir":      str("Directory for filesystem and badger backends"),
			"address":  str("Redis address"),
			"password": str("Redis password"),
			"dsn":      str("SQLite or Postgres DSN"),
			"uri":      str("MongoDB connection URI"),
			"database": str("MongoDB database"),
			"table":    str("Table or collection name"),
			"region":   str("DynamoDB region"),
			"endpoint": str("DynamoDB endpoint override"),
			"db": {
				Type:        "integer",
				Description: "Redis database index",
				Minimum:     floatPtr(0),
			},
			"pool_size": {
				Type:        "integer",
				Description: "Redis pool size or SQLite max open connections",
				Minimum:     floatPtr(0),
			},
			"timeout":      durationSchema("Redis dial, read and write timeout", "3s"),
			"busy_timeout": durationSchema("SQLite busy timeout", "5s"),
			"journal_mode": {
				Type:        "string",
				Description: "SQLite journal mode",
				Enum:        []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF", "delete", "truncate", "persist", "memory", "wal", "off"},
				Default:     "WAL",
			},
			"sync_writes": {
				Type:        "boolean",
				Description: "Fsync every badger write",
			},
		},
		AdditionalProperties: boolPtr(false),
	}
}

func generateResilienceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Action execution resilience",
		Properties: map[string]*JSONSchema{
			"enabled": {
				Type:        "boolean",
				Description: "Wrap action execution with bulkhead, timeout, breaker and retry",
			},
			"max_concurrent": {
				Type:    "integer",
				Default: 10,
				Minimum: floatPtr(0),
			},
			"timeout": durationSchema("Per-action timeout", "30s"),
			"retry": {
				Type:        "object",
				Description: "Retry policy for idempotent actions",
				Properties: map[string]*JSONSchema{
					"max_attempts": {
						Type:    "integer",
						Default: 3,
						Minimum: floatPtr(0),
					},
					"initial_delay": durationSchema("First backoff delay", "100ms"),
					"multiplier": {
						Type:    "number",
						Default: 2.0,
						Minimum: floatPtr(1),
					},
				},
				AdditionalProperties: boolPtr(false),
			},
			"circuit_breaker": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"threshold": {
						Type:        "integer",
						Description: "Consecutive failures before opening",
						Default:     5,
						Minimum:     floatPtr(0),
					},
					"timeout": durationSchema("Time before half-open", "30s"),
				},
				AdditionalProperties: boolPtr(false),
			},
			"rate_limit": {
				Type:        "object",
				Description: "Token bucket limit on action executions",
				Properties: map[string]*JSONSchema{
					"rate":  {Type: "integer", Minimum: floatPtr(0)},
					"burst": {Type: "integer", Minimum: floatPtr(0)},
					"scope": {
						Type:    "string",
						Enum:    []string{"global", "per_action"},
						Default: "global",
					},
				},
				AdditionalProperties: boolPtr(false),
			},
		},
		AdditionalProperties: boolPtr(false),
	}
}

func generateTelemetrySchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Telemetry sinks",
		Properties: map[string]*JSONSchema{
			"metrics":    {Type: "boolean", Description: "Emit OpenTelemetry metrics"},
			"prometheus": {Type: "boolean", Description: "Expose Prometheus metrics"},
			"log_events": {Type: "boolean", Description: "Log telemetry events at debug level"},
			"tracing": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"enabled": {Type: "boolean"},
					"exporter": {
						Type: "string",
						Enum: []string{"otlp", "stdout", "noop"},
					},
					"endpoint": {Type: "string", Description: "OTLP gRPC endpoint"},
					"insecure": {Type: "boolean"},
					"sample_rate": {
						Type:    "number",
						Minimum: floatPtr(0),
						Maximum: floatPtr(1),
						Default: 1.0,
					},
				},
				AdditionalProperties: boolPtr(false),
			},
		},
		AdditionalProperties: boolPtr(false),
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

func boolPtr(b bool) *bool {
	return &b
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	schema := GenerateSchema()
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
