package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/custodian/pkg/actor"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/telemetry/logging"
)

const defaultConfigFile = "custodian.yaml"

var (
	// Global flags
	cfgFile    string
	verbose    bool
	logLevel   string
	actorID    string
	actorEmail string
	actorRoles []string
)

var rootCmd = &cobra.Command{
	Use:   "custodian",
	Short: "Custodian - retention and legal-hold decision engine",
	Long: `Custodian decides when governed records reach the end of their retention
period and what happens to them.

It provides:
  - Retention policies loaded from YAML files or a Git repository
  - Retention schedules with expiry dates and required actions
  - Legal holds that freeze records under litigation or investigation
  - Scheduled sweeps that archive, delete, flag or notify on expired records
  - An append-only audit trail of every retention and hold operation`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the
// returned error.
func Execute() {
	ctx, stop := cli.SetupSignalHandler(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "", "act as this user id instead of the configured actor")
	rootCmd.PersistentFlags().StringVar(&actorEmail, "actor-email", "", "email of the --actor user")
	rootCmd.PersistentFlags().StringSliceVar(&actorRoles, "actor-role", nil, "roles of the --actor user")
}

// loadConfig loads the configuration file and installs the process logger.
// A missing default config file falls back to defaults plus environment
// overrides; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Initialize(path)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	logCfg := logging.FromConfig(&cfg.Telemetry.Logging)
	switch {
	case logLevel != "":
		logCfg.Level = logLevel
	case verbose:
		logCfg.Level = "debug"
	}
	if _, err := logging.Setup(logCfg); err != nil {
		return nil, cli.NewConfigError("log-level", err.Error())
	}
	return cfg, nil
}

// commandContext returns the command context carrying the --actor identity
// when one was given.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if actorID != "" {
		ctx = actor.WithActor(ctx, actor.Actor{
			ID:    actorID,
			Email: actorEmail,
			Roles: actorRoles,
		})
	}
	return ctx
}

// withApp builds the engine for one command invocation and closes it when
// fn returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	a, err := newApp(ctx, cfg)
	if err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}
	defer a.Close()

	return fn(ctx, a)
}
