package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a runtime configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Server mode, strategy and queue settings
  - Checkpoint backend and its connection settings
  - Resilience and telemetry settings
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  agentrt validate -c runtime.yaml

  # Strict validation (fail on missing env vars)
  agentrt validate -c runtime.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	cfg, err := loadConfig(opts.configPath, opts.strict)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	_, _ = fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	if cfg.InstanceID != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Instance: %s\n", cfg.InstanceID)
	}

	_, _ = fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(a.stdout, "  Mode: %s\n", cfg.Server.Mode)
	_, _ = fmt.Fprintf(a.stdout, "  Strategy: %s\n", cfg.Server.Strategy)
	_, _ = fmt.Fprintf(a.stdout, "  Max queue size: %d\n", cfg.Server.MaxQueueSize)
	_, _ = fmt.Fprintf(a.stdout, "  Call timeout: %s\n", cfg.Server.CallTimeout.Duration())
	_, _ = fmt.Fprintf(a.stdout, "  Checkpoint backend: %s\n", cfg.Checkpoint.Backend)

	if cfg.Resilience.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Resilience: enabled (retries=%d, breaker threshold=%d)\n",
			cfg.Resilience.Retry.MaxAttempts, cfg.Resilience.CircuitBreaker.Threshold)
	}
	if cfg.Telemetry.Tracing.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Tracing: %s\n", cfg.Telemetry.Tracing.Exporter)
	}

	return nil
}
