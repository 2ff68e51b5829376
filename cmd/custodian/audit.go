package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
}

var auditQueryFlags struct {
	actions    []string
	entityType string
	entityID   string
	actorID    string
	since      string
	until      string
	limit      int
	format     string
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit events",
	Long: `Query audit events recorded by sweeps and legal hold operations.

--since and --until accept a date (YYYY-MM-DD), an RFC3339 timestamp or a
duration back from now (e.g. 24h).

Examples:
  # Everything in the last day
  custodian audit query --since 24h

  # Archive and purge events for one policy
  custodian audit query --action retention.archive --action retention.purge \
    --entity-type Policy --entity-id pol-1

  # Hold placements by one user, as CSV
  custodian audit query --action legal_hold.place --by u-42 --format csv`,
	RunE: runAuditQuery,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)

	auditQueryCmd.Flags().StringSliceVar(&auditQueryFlags.actions, "action", nil, "filter by action (repeatable)")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.entityType, "entity-type", "", "filter by entity type")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.entityID, "entity-id", "", "filter by entity id")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.actorID, "by", "", "filter by actor id")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.since, "since", "", "earliest event time")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.until, "until", "", "latest event time")
	auditQueryCmd.Flags().IntVar(&auditQueryFlags.limit, "limit", 100, "maximum number of events (0 = no limit)")
	auditQueryCmd.Flags().StringVarP(&auditQueryFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditQueryFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	now := time.Now().UTC()
	query := &audit.Query{
		EntityType: auditQueryFlags.entityType,
		EntityID:   auditQueryFlags.entityID,
		ActorID:    auditQueryFlags.actorID,
		Limit:      auditQueryFlags.limit,
	}
	for _, a := range auditQueryFlags.actions {
		query.Actions = append(query.Actions, audit.Action(a))
	}
	if query.StartTime, err = parseTimeBound(auditQueryFlags.since, now); err != nil {
		return cli.NewConfigError("since", err.Error())
	}
	if query.EndTime, err = parseTimeBound(auditQueryFlags.until, now); err != nil {
		return cli.NewConfigError("until", err.Error())
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		querier, err := a.auditQuerier()
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}
		events, err := querier.Query(ctx, query)
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}
		return writeEvents(cmd.OutOrStdout(), format, events)
	})
}

// eventTable renders audit events.
type eventTable []*audit.Event

func (t eventTable) Header() []string {
	return []string{"TIMESTAMP", "ACTION", "ENTITY TYPE", "ENTITY ID", "ACTOR", "DRY RUN", "DETAILS"}
}

func (t eventTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		details := ""
		if len(e.Details) > 0 {
			if b, err := json.Marshal(e.Details); err == nil {
				details = string(b)
			}
		}
		rows = append(rows, []string{
			e.Timestamp.Format(time.RFC3339),
			string(e.Action),
			e.EntityType,
			e.EntityID,
			e.ActorID,
			strconv.FormatBool(e.DryRun),
			details,
		})
	}
	return rows
}

func writeEvents(w io.Writer, format cli.OutputFormat, events []*audit.Event) error {
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(w, events)
	}
	return cli.NewFormatter(format).FormatTo(w, eventTable(events))
}

// parseTimeBound parses a date, an RFC3339 timestamp or a duration
// subtracted from now. An empty string returns nil.
func parseTimeBound(s string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		t := now.Add(-d)
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: expected YYYY-MM-DD, RFC3339 or a duration", s)
	}
	return &t, nil
}
