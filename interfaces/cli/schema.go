package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/agent-runtime/infrastructure/config"
)

// schemaOptions holds options for the schema command.
type schemaOptions struct {
	outputPath string
}

// newSchemaCmd creates the schema command.
func (a *App) newSchemaCmd() *cobra.Command {
	opts := &schemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Export the configuration JSON schema",
		Long: `Export the JSON Schema for runtime configuration files.

The schema follows JSON Schema draft 2020-12 and can be used for editor
validation and CI checks.

Examples:
  # Export schema to stdout
  agentrt schema

  # Export schema to a file
  agentrt schema -o runtime.schema.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exportSchema(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output file path (default: stdout)")

	return cmd
}

// exportSchema writes the configuration JSON schema.
func (a *App) exportSchema(opts *schemaOptions) error {
	schemaJSON, err := config.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if opts.outputPath == "" {
		_, _ = fmt.Fprintln(a.stdout, schemaJSON)
		return nil
	}

	// Write to file with restrictive permissions (G306)
	if err := os.WriteFile(opts.outputPath, []byte(schemaJSON), 0600); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "Schema exported to %s\n", opts.outputPath)
	return nil
}
