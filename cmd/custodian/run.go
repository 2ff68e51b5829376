package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/policy/manager"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/health"
)

var runFlags struct {
	dryRun   bool
	sweepNow bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the retention scheduler",
	Long: `Start Custodian as a long-running process.

The process runs retention sweeps on the configured cron schedule, expires
legal holds whose end date has passed, hot-reloads policies when they change
and serves Prometheus metrics.

Examples:
  # Start with the default config
  custodian run

  # Start with a custom config, sweeping in dry-run mode
  custodian run --config /etc/custodian/custodian.yaml --dry-run

  # Run one sweep immediately, then follow the schedule
  custodian run --sweep-now`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "run scheduled sweeps in dry-run mode")
	runCmd.Flags().BoolVar(&runFlags.sweepNow, "sweep-now", false, "run one sweep at startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		cfg := a.cfg

		dryRun := runFlags.dryRun || cfg.Retention.DryRun
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Custodian v%s\n", Version)
		fmt.Fprintf(out, "✓ Record store: %s\n", cfg.Store.Backend)
		fmt.Fprintf(out, "✓ Policies loaded: %d (version %s)\n", a.policies.Registry().Count(), a.policies.Version())

		if err := a.metrics.RefreshHolds(ctx, a.holds); err != nil {
			return cli.NewCommandError("run", err)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)

		checker := health.New(cfg.Telemetry.Health.CheckTimeout)
		checker.RegisterCheck("record_store", health.StoreCheck(a.store))
		checker.RegisterCheck("policies", health.PolicyCheck(a.policies))

		if config.Bool(cfg.Telemetry.Metrics.Enabled, true) {
			addr, path := cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path
			var mounts []func(*http.ServeMux)
			if config.Bool(cfg.Telemetry.Health.Enabled, true) {
				mounts = append(mounts, checker.Mount(Version, GitCommit, BuildDate))
			}
			g.Go(func() error {
				if err := a.metrics.Serve(gctx, addr, path, mounts...); err != nil {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			})
			fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", addr, path)
			if len(mounts) > 0 {
				fmt.Fprintf(out, "✓ Health endpoints: http://%s%s, http://%s%s\n", addr, health.LivenessPath, addr, health.ReadinessPath)
			}
		}
		if a.tracer.Enabled() {
			fmt.Fprintf(out, "✓ Tracing: %s\n", cfg.Telemetry.Tracing.Endpoint)
		}

		g.Go(func() error {
			err := a.policies.Watch(gctx)
			if errors.Is(err, manager.ErrWatchDisabled) {
				slog.Debug("policy hot reload disabled")
				return nil
			}
			if err != nil {
				return fmt.Errorf("policy watch: %w", err)
			}
			return nil
		})

		schedOpts := []retention.SchedulerOption{
			retention.WithRunTimeout(cfg.Retention.RunTimeout),
		}
		if config.Bool(cfg.Retention.ExpireHolds, true) {
			schedOpts = append(schedOpts, retention.WithHoldExpiry(a.holdMgr))
		}
		scheduler := retention.NewScheduler(a, cfg.Retention.Schedule, dryRun, schedOpts...)
		if err := scheduler.Start(gctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer scheduler.Stop()
		checker.RegisterCheck("scheduler", health.SchedulerCheck(scheduler))

		if next := scheduler.NextRun(); next != nil {
			fmt.Fprintf(out, "✓ Next sweep: %s (dry run: %t)\n", next.Format("2006-01-02 15:04:05 MST"), dryRun)
		}
		if runFlags.sweepNow {
			if result := scheduler.RunNow(gctx); result != nil {
				fmt.Fprintln(out)
				if err := writeSweepResult(out, cli.FormatText, result); err != nil {
					return err
				}
			}
		}

		fmt.Fprintln(out, "\nPress Ctrl+C to stop")

		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
		if err := g.Wait(); err != nil {
			return cli.NewCommandError("run", err)
		}

		fmt.Fprintln(out, "✓ Scheduler stopped")
		return nil
	})
}
