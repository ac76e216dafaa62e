// Package agentruntime provides the version information for agent-runtime.
package agentruntime

// Version is the current version of agent-runtime.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
