package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chartvault.io/vault/internal/app"
	"chartvault.io/vault/internal/domain"
	"chartvault.io/vault/internal/ledger"
)

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}

func newVerifyCommand() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the audit ledger hash chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if full {
					report, err := a.Ledger.GenerateReport(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd, report)
				}
				report, err := a.Ledger.Verify(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(cmd, report); err != nil {
					return err
				}
				if !report.IsIntact {
					return fmt.Errorf("ledger integrity check failed: %d critical issues",
						report.CriticalIssues)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include statistics, retention state and recommendations")
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show audit ledger statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				stats, err := a.Ledger.Statistics(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			})
		},
	}
}

func newQueryCommand() *cobra.Command {
	var (
		actor, kind, table, record string
		since, until               string
		fileOnly                   bool
		limit, offset              int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query audit ledger entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := ledger.Filter{
				Actor:       actor,
				EntityTable: table,
				RecordID:    record,
				FileOnly:    fileOnly,
				Limit:       limit,
				Offset:      offset,
			}
			if kind != "" {
				f.Kind = domain.EventType(kind)
				if !f.Kind.IsValid() {
					return fmt.Errorf("unknown event type %q", kind)
				}
			}
			var err error
			if f.From, err = parseTimeFlag(since); err != nil {
				return fmt.Errorf("parse --since: %w", err)
			}
			if f.To, err = parseTimeFlag(until); err != nil {
				return fmt.Errorf("parse --until: %w", err)
			}

			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				entries, err := a.Ledger.Query(ctx, f)
				if err != nil {
					return err
				}
				return printJSON(cmd, entries)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor id")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by event type (CREATE, READ, ...)")
	cmd.Flags().StringVar(&table, "table", "", "filter by entity table")
	cmd.Flags().StringVar(&record, "record", "", "filter by record id")
	cmd.Flags().StringVar(&since, "since", "", "earliest timestamp (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "latest timestamp (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&fileOnly, "file-only", false, "only file operations")
	cmd.Flags().IntVar(&limit, "limit", ledger.DefaultQueryLimit, "maximum entries returned")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		format       string
		since, until string
	)
	cmd := &cobra.Command{
		Use:   "export <output-path>",
		Short: "Export the audit ledger to a JSON or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f ledger.Filter
			var err error
			if f.From, err = parseTimeFlag(since); err != nil {
				return fmt.Errorf("parse --since: %w", err)
			}
			if f.To, err = parseTimeFlag(until); err != nil {
				return fmt.Errorf("parse --until: %w", err)
			}

			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				result, err := a.Ledger.Export(ctx, args[0], f, format)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "export format: json or csv")
	cmd.Flags().StringVar(&since, "since", "", "earliest timestamp (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "latest timestamp (RFC3339 or YYYY-MM-DD)")
	return cmd
}

func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(domain.DateLayout, s)
}
