package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chartvault.io/vault/internal/app"
	"chartvault.io/vault/internal/pkg/logger"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the vault with the background cleanup scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Start(); err != nil {
					return err
				}
				logger.Info("ChartVault running",
					zap.String("database", a.Config.Database.Path),
					zap.Bool("cleanup_enabled", a.Config.Cleanup.Enabled),
					zap.Int("retention_years", a.Ledger.Retention()),
				)

				quit := make(chan os.Signal, 1)
				signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
				select {
				case <-quit:
					logger.Info("Shutdown signal received")
				case <-ctx.Done():
				}
				return nil
			})
		},
	}
}
