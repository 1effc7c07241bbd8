package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"chartvault.io/vault/internal/app"
	"chartvault.io/vault/internal/config"
	"chartvault.io/vault/internal/pkg/logger"
)

// cliActor is the actor id stamped on ledger entries written by CLI
// invocations.
const cliActor = "vaultctl"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "vaultctl",
		Short:         "ChartVault audited record vault",
		Long:          "vaultctl manages the ChartVault appointment store and its tamper-evident audit ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCommand(),
		newVerifyCommand(),
		newStatsCommand(),
		newQueryCommand(),
		newExportCommand(),
		newRetentionCommand(),
		newCleanupCommand(),
	)
	return root
}

// withApp loads config, initializes logging, bootstraps the application and
// hands it to fn, shutting everything down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := cmd.Context()
	a, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer a.Shutdown()

	return fn(ctx, a)
}
