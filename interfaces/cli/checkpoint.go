package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage"
)

// checkpointOptions holds options shared by the checkpoint subcommands.
type checkpointOptions struct {
	configPath string
}

// newCheckpointCmd creates the checkpoint command group.
func (a *App) newCheckpointCmd() *cobra.Command {
	opts := &checkpointOptions{}

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect stored agent checkpoints",
		Long: `Read or remove the checkpoint an agent server saved to the backend
configured in checkpoint.backend.

Examples:
  # Show the checkpoint of agent counter-1
  agentrt checkpoint get -c runtime.yaml counter-1

  # Remove it
  agentrt checkpoint delete -c runtime.yaml counter-1`,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	_ = cmd.MarkPersistentFlagRequired("config")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <agent-id>",
			Short: "Print an agent checkpoint as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.getCheckpoint(cmd.Context(), opts, args[0])
			},
		},
		&cobra.Command{
			Use:   "delete <agent-id>",
			Short: "Delete an agent checkpoint",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.deleteCheckpoint(cmd.Context(), opts, args[0])
			},
		},
	)

	return cmd
}

// openStore opens the configured backend and returns the key prefix.
func openStore(ctx context.Context, path string) (checkpoint.Store, string, error) {
	cfg, err := loadConfig(path, false)
	if err != nil {
		return nil, "", err
	}
	store, err := storage.Open(ctx, cfg.Checkpoint)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	if store == nil {
		return nil, "", errors.New("checkpointing is disabled in this configuration")
	}
	return store, cfg.Checkpoint.KeyPrefix, nil
}

func (a *App) getCheckpoint(ctx context.Context, opts *checkpointOptions, agentID string) error {
	store, prefix, err := openStore(ctx, opts.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = storage.Close(store) }()

	data, err := store.Fetch(ctx, checkpoint.Key(prefix, agentID))
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", agentID, err)
	}
	cp, err := checkpoint.Decode(data)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", agentID, err)
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cp)
}

func (a *App) deleteCheckpoint(ctx context.Context, opts *checkpointOptions, agentID string) error {
	store, prefix, err := openStore(ctx, opts.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = storage.Close(store) }()

	if err := store.Delete(ctx, checkpoint.Key(prefix, agentID)); err != nil {
		return fmt.Errorf("checkpoint %s: %w", agentID, err)
	}
	_, _ = fmt.Fprintf(a.stdout, "Checkpoint %s deleted\n", agentID)
	return nil
}
