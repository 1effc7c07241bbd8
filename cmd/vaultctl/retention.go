package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"chartvault.io/vault/internal/app"
)

func newRetentionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Inspect or change the retention policy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the retention policy and how much data it currently covers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				info, err := a.Ledger.RetentionPolicyInfo(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, info)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <years>",
		Short: "Set the retention period in years (1 to 10)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			years, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				old, err := a.Ledger.SetRetention(ctx, years, cliActor)
				if err != nil {
					return err
				}
				cmd.Printf("retention changed: %d -> %d years\n", old, years)
				return nil
			})
		},
	})

	return cmd
}

func newCleanupCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run a full retention cleanup (files, soft-deleted records, ledger)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				years := a.Ledger.Retention()
				if dryRun {
					preview, err := a.Retention.Preview(ctx, years)
					if err != nil {
						return err
					}
					return printJSON(cmd, preview)
				}
				result, err := a.Retention.RunFullCleanup(ctx, years, cliActor)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without removing anything")
	return cmd
}
