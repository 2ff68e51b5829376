package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/policy/manager"
	"mercator-hq/custodian/pkg/retention"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Validate and inspect retention policies",
}

var policyValidateFlags struct {
	format string
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate [PATH]",
	Short: "Validate retention policy files",
	Long: `Validate retention policy files without loading them into a running engine.

PATH is a policy file or a directory searched recursively. It defaults to
policy.path from the configuration. Every malformed policy is reported with
its file and line.

Examples:
  # Validate the configured policy directory
  custodian policy validate

  # Validate a single file, JSON output for CI
  custodian policy validate policies/finance.yaml --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPolicyValidate,
}

var policyListFlags struct {
	format string
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the loaded retention policies",
	RunE:  runPolicyList,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyValidateCmd, policyListCmd)

	policyValidateCmd.Flags().StringVarP(&policyValidateFlags.format, "format", "f", "text", "output format (text, json)")
	policyListCmd.Flags().StringVarP(&policyListFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

// validationReport is the result of validating one policy path.
type validationReport struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Policies int      `json:"policies"`
	Errors   []string `json:"errors,omitempty"`
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(policyValidateFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := cfg.Policy.Path
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return cli.NewConfigError("policy.path", "no policy path configured; pass PATH")
	}

	periods, err := defaultPeriods(cfg.Retention.DefaultPeriods)
	if err != nil {
		return cli.NewConfigError("retention.default_periods", err.Error())
	}
	calc := retention.NewCalculator(retention.WithDefaultPeriods(periods))

	report := validatePolicies(path, calc)
	if err := writeValidationReport(cmd.OutOrStdout(), format, report); err != nil {
		return err
	}
	if !report.Valid {
		return cli.NewCommandError("policy validate", fmt.Errorf("%d policy error(s) in %s", len(report.Errors), path))
	}
	return nil
}

func validatePolicies(path string, calc *retention.Calculator) *validationReport {
	report := &validationReport{Path: path}

	policies, err := manager.NewPolicyLoader(nil, calc).Load(path)
	if err != nil {
		var list *manager.ErrorList
		if errors.As(err, &list) {
			for _, e := range list.Errors {
				report.Errors = append(report.Errors, e.Error())
			}
		} else {
			report.Errors = []string{err.Error()}
		}
		return report
	}

	report.Valid = true
	report.Policies = len(policies)
	return report
}

func writeValidationReport(w io.Writer, format cli.OutputFormat, report *validationReport) error {
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(w, report)
	}

	if report.Valid {
		fmt.Fprintf(w, "✓ %s: %d policies valid\n", report.Path, report.Policies)
		return nil
	}
	fmt.Fprintf(w, "✗ %s: %d error(s)\n", report.Path, len(report.Errors))
	for _, e := range report.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	return nil
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(policyListFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		return writePolicies(cmd.OutOrStdout(), format, a)
	})
}

// policyTable renders policy summaries.
type policyTable []manager.PolicySummary

func (t policyTable) Header() []string {
	return []string{"ID", "NAME", "APPLIES TO", "CATEGORY", "PERIOD (DAYS)", "ACTION", "PRIORITY", "ACTIVE"}
}

func (t policyTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		period := strconv.Itoa(p.RetentionPeriodDays)
		if p.RetentionPeriodDays == retention.IndefinitePeriod {
			period = "indefinite"
		}
		rows = append(rows, []string{
			p.ID,
			p.Name,
			p.AppliesTo,
			p.RetentionCategory,
			period,
			p.ActionOnExpiry,
			strconv.Itoa(p.Priority),
			strconv.FormatBool(p.IsActive),
		})
	}
	return rows
}

func writePolicies(w io.Writer, format cli.OutputFormat, a *app) error {
	summaries := a.policies.Registry().Summaries(a.calc)
	formatter := cli.NewFormatter(format)

	switch format {
	case cli.FormatJSON:
		return formatter.FormatTo(w, summaries)
	case cli.FormatCSV:
		return formatter.FormatTo(w, policyTable(summaries))
	}

	stats := a.policies.Registry().Stats()
	fmt.Fprintf(w, "Policy set %s: %d policies, %d active\n\n", stats.Version, stats.PolicyCount, stats.ActiveCount)
	return formatter.FormatTo(w, policyTable(summaries))
}
