package application

import "errors"

// Admission errors.
var (
	// ErrQueueFull is returned by Cast and Call when the mailbox is at capacity.
	ErrQueueFull = errors.New("agent server queue is full")

	// ErrUnsupportedMessage is returned for messages that are neither a
	// signal, an instruction nor a batch.
	ErrUnsupportedMessage = errors.New("unsupported message type")

	// ErrDuplicateCorrelation is returned when a Call reuses the correlation
	// ID of a call still waiting for its reply.
	ErrDuplicateCorrelation = errors.New("correlation id already awaiting reply")
)

// Construction errors. Start never returns a running server with any of these.
var (
	// ErrInvalidAgent indicates a nil or malformed agent in the spec.
	ErrInvalidAgent = errors.New("invalid agent")

	// ErrModuleLoadFailed indicates the module is not registered.
	ErrModuleLoadFailed = errors.New("module load failed")

	// ErrAgentCreationFailed indicates the module factory returned an error or panicked.
	ErrAgentCreationFailed = errors.New("agent creation failed")

	// ErrInvalidAgentReturn indicates the factory returned a nil or malformed agent.
	ErrInvalidAgentReturn = errors.New("invalid agent returned by factory")

	// ErrInvalidState indicates the agent state failed schema validation.
	ErrInvalidState = errors.New("invalid agent state")

	// ErrAlreadyRegistered indicates a name is already taken in the registry.
	ErrAlreadyRegistered = errors.New("name already registered")
)

// Runtime errors.
var (
	// ErrTimeout is returned when a Call exceeds its timeout. The message
	// keeps running on the server.
	ErrTimeout = errors.New("call timed out")

	// ErrServerStopped is returned by operations on a stopped server.
	ErrServerStopped = errors.New("agent server stopped")

	// ErrServerCrashed wraps the failure that terminated a server.
	ErrServerCrashed = errors.New("agent server crashed")

	// ErrNotStepMode is returned by Step on a server in auto mode.
	ErrNotStepMode = errors.New("agent server is not in step mode")

	// ErrChildNotFound is returned when killing an unknown child.
	ErrChildNotFound = errors.New("child not found")
)
