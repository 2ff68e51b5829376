package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention"
)

var sweepFlags struct {
	dryRun bool
	format string
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Apply expiry actions to expired records",
	Long: `Run one retention sweep now.

The sweep builds a fresh schedule and applies the expiry action of every
expired record: Archive and Delete archive the record, Review flags it for
manual review, Notify sends a notification. Records on legal hold are
skipped. A dry run reports what would happen without changing anything.

The command exits with status 5 when the sweep completed but some records
failed.

Examples:
  # Preview the sweep
  custodian sweep --dry-run

  # Run the sweep as a named records officer
  custodian sweep --actor u-42 --actor-role records-manager

  # Full per-record results as JSON
  custodian sweep --format json`,
	RunE: runSweepCmd,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().BoolVar(&sweepFlags.dryRun, "dry-run", false, "report actions without changing any record")
	sweepCmd.Flags().StringVarP(&sweepFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runSweepCmd(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(sweepFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		dryRun := sweepFlags.dryRun || a.cfg.Retention.DryRun
		if a.cfg.Retention.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.cfg.Retention.RunTimeout)
			defer cancel()
		}

		result, err := a.ProcessExpired(ctx, dryRun)
		if err != nil {
			return cli.NewCommandError("sweep", err)
		}
		if err := writeSweepResult(cmd.OutOrStdout(), format, result); err != nil {
			return err
		}
		if len(result.Errors) > 0 {
			return &cli.SweepError{SweepID: result.SweepID, Errors: len(result.Errors)}
		}
		return nil
	})
}

// sweepTable renders per-record sweep results.
type sweepTable []retention.ItemResult

func (t sweepTable) Header() []string {
	return []string{"ENTITY TYPE", "ENTITY ID", "POLICY", "OUTCOME", "ARCHIVE ID", "ERROR"}
}

func (t sweepTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, item := range t {
		rows = append(rows, []string{
			string(item.EntityType),
			item.EntityID,
			item.PolicyID,
			string(item.Outcome),
			item.ArchiveID,
			item.Error,
		})
	}
	return rows
}

func writeSweepResult(w io.Writer, format cli.OutputFormat, result *retention.BatchResult) error {
	formatter := cli.NewFormatter(format)
	switch format {
	case cli.FormatJSON:
		return formatter.FormatTo(w, result)
	case cli.FormatCSV:
		return formatter.FormatTo(w, sweepTable(result.Items))
	}

	mode := "sweep"
	if result.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "Retention %s %s finished in %s\n", mode, result.SweepID, result.Duration.Round(time.Millisecond))
	counts := []struct {
		label string
		n     int
	}{
		{"Processed", result.TotalProcessed},
		{"Archived", result.Archived},
		{"Deleted", result.Deleted},
		{"Review required", result.ReviewRequired},
		{"Notifications", result.NotificationsSent},
		{"Skipped (legal hold)", result.SkippedLegalHold},
		{"Already archived", result.AlreadyArchived},
		{"Errors", len(result.Errors)},
	}
	for _, c := range counts {
		fmt.Fprintf(w, "  %-22s%d\n", c.label+":", c.n)
	}
	if len(result.Items) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return formatter.FormatTo(w, sweepTable(result.Items))
}
