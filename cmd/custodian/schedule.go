package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/export"
)

// scheduleOptions selects which schedule entries are reported.
type scheduleOptions struct {
	expiring    int // days; negative means not requested
	expiredOnly bool
	format      string
}

var scheduleFlags struct {
	expiring int
	expired  bool
	format   string
	output   string
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the retention schedule",
	Long: `Compute the retention schedule for every governed record and print it.

Each entry shows the matching policy, the retention expiry date, the days
remaining, whether the record is on legal hold and the action required.
Records that no active policy covers are not listed.

Examples:
  # Full schedule as a table
  custodian schedule

  # Records expiring within the configured window (default 30 days)
  custodian schedule --expiring

  # Records expiring within 7 days, as CSV
  custodian schedule --expiring 7 --format csv

  # Records already past their expiry date, as JSON
  custodian schedule --expired --format json --output expired.json`,
	RunE: runScheduleCmd,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().IntVar(&scheduleFlags.expiring, "expiring", 0, "only entries expiring within N days (default: retention.expiring_window_days)")
	scheduleCmd.Flags().Lookup("expiring").NoOptDefVal = "-1"
	scheduleCmd.Flags().BoolVar(&scheduleFlags.expired, "expired", false, "only entries past their expiry date")
	scheduleCmd.Flags().StringVarP(&scheduleFlags.format, "format", "f", "text", "output format (text, json, csv)")
	scheduleCmd.Flags().StringVarP(&scheduleFlags.output, "output", "o", "", "write to file instead of stdout")
	scheduleCmd.MarkFlagsMutuallyExclusive("expiring", "expired")
}

func runScheduleCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		opts := scheduleOptions{
			expiring:    -1,
			expiredOnly: scheduleFlags.expired,
			format:      scheduleFlags.format,
		}
		if cmd.Flags().Changed("expiring") {
			opts.expiring = scheduleFlags.expiring
			if opts.expiring < 0 {
				opts.expiring = a.cfg.Retention.ExpiringWindowDays
			}
		}

		var w io.Writer = cmd.OutOrStdout()
		if scheduleFlags.output != "" {
			f, err := os.Create(scheduleFlags.output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		schedule, err := runSchedule(ctx, a, w, opts)
		if err != nil {
			return cli.NewCommandError("schedule", err)
		}
		for _, fetchErr := range schedule.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", fetchErr)
		}
		return nil
	})
}

// runSchedule generates the schedule, filters it per opts and exports the
// selected entries to w.
func runSchedule(ctx context.Context, a *app, w io.Writer, opts scheduleOptions) (*retention.Schedule, error) {
	exporter, err := export.New(opts.format)
	if err != nil {
		return nil, err
	}

	schedule, err := a.builder.Generate(ctx)
	if err != nil {
		return nil, err
	}

	entries := schedule.Entries
	switch {
	case opts.expiredOnly:
		entries = schedule.Expired()
	case opts.expiring >= 0:
		entries = schedule.ExpiringWithin(opts.expiring)
	}

	if err := exporter.Export(ctx, entries, w); err != nil {
		return nil, err
	}
	return schedule, nil
}
