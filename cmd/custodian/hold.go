package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/legalhold"
	"mercator-hq/custodian/pkg/records"
)

var holdCmd = &cobra.Command{
	Use:   "hold",
	Short: "Manage legal holds",
	Long: `Place, release, list and expire legal holds.

A record on legal hold is excluded from every retention action until the
hold is released or its end date passes.`,
}

var holdPlaceFlags struct {
	entityType    string
	ids           []string
	reason        string
	caseReference string
	until         string
}

var holdPlaceCmd = &cobra.Command{
	Use:   "place",
	Short: "Place a legal hold on one or more records",
	Long: `Place a legal hold on records of one entity type.

Records that already carry an active hold are skipped. Placement stops at
the first record that cannot be held; holds placed before it are kept.

Examples:
  # Hold two policies for a lawsuit
  custodian hold place --type Policy --id pol-1 --id pol-2 \
    --reason "Smith v. Acme" --case CASE-2024-001

  # Hold an acknowledgement until the end of the year
  custodian hold place --type Acknowledgement --id ack-9 \
    --reason "Regulator inquiry" --until 2025-12-31`,
	RunE: runHoldPlace,
}

var holdReleaseFlags struct {
	reason string
}

var holdReleaseCmd = &cobra.Command{
	Use:   "release HOLD_ID",
	Short: "Release a legal hold",
	Args:  cobra.ExactArgs(1),
	RunE:  runHoldRelease,
}

var holdListFlags struct {
	entityType string
	entityID   string
	status     string
	limit      int
	format     string
}

var holdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List legal holds",
	Long: `List legal holds, optionally filtered by entity and status.

Examples:
  # Active holds
  custodian hold list --status active

  # Every hold ever placed on one policy, as JSON
  custodian hold list --type Policy --id pol-1 --format json`,
	RunE: runHoldList,
}

var holdExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire active holds whose end date has passed",
	RunE:  runHoldExpire,
}

func init() {
	rootCmd.AddCommand(holdCmd)
	holdCmd.AddCommand(holdPlaceCmd, holdReleaseCmd, holdListCmd, holdExpireCmd)

	holdPlaceCmd.Flags().StringVarP(&holdPlaceFlags.entityType, "type", "t", "", "entity type (Policy, Acknowledgement)")
	holdPlaceCmd.Flags().StringSliceVar(&holdPlaceFlags.ids, "id", nil, "record id to hold (repeatable)")
	holdPlaceCmd.Flags().StringVarP(&holdPlaceFlags.reason, "reason", "r", "", "reason for the hold")
	holdPlaceCmd.Flags().StringVar(&holdPlaceFlags.caseReference, "case", "", "case or matter reference")
	holdPlaceCmd.Flags().StringVar(&holdPlaceFlags.until, "until", "", "end date (YYYY-MM-DD or RFC3339); the hold expires after it")
	holdPlaceCmd.MarkFlagRequired("type")
	holdPlaceCmd.MarkFlagRequired("id")
	holdPlaceCmd.MarkFlagRequired("reason")

	holdReleaseCmd.Flags().StringVarP(&holdReleaseFlags.reason, "reason", "r", "", "reason for the release")

	holdListCmd.Flags().StringVarP(&holdListFlags.entityType, "type", "t", "", "filter by entity type")
	holdListCmd.Flags().StringVar(&holdListFlags.entityID, "id", "", "filter by record id")
	holdListCmd.Flags().StringVarP(&holdListFlags.status, "status", "s", "", "filter by status (active, released, expired)")
	holdListCmd.Flags().IntVar(&holdListFlags.limit, "limit", 0, "maximum number of holds (0 = no limit)")
	holdListCmd.Flags().StringVarP(&holdListFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runHoldPlace(cmd *cobra.Command, args []string) error {
	entityType, err := parseEntityType(holdPlaceFlags.entityType)
	if err != nil {
		return err
	}
	endDate, err := parseDate(holdPlaceFlags.until)
	if err != nil {
		return cli.NewConfigError("until", err.Error())
	}

	req := &legalhold.PlaceRequest{
		EntityType:    entityType,
		EntityIDs:     holdPlaceFlags.ids,
		Reason:        holdPlaceFlags.reason,
		CaseReference: holdPlaceFlags.caseReference,
		EndDate:       endDate,
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		placed, err := a.holdMgr.PlaceHold(ctx, req)
		out := cmd.OutOrStdout()
		for _, h := range placed {
			fmt.Fprintf(out, "✓ Placed hold %s on %s %s\n", h.ID, h.EntityType, h.EntityID)
		}
		if skipped := len(req.EntityIDs) - len(placed); err == nil && skipped > 0 {
			fmt.Fprintf(out, "%d record(s) already on hold\n", skipped)
		}
		if err != nil {
			return cli.NewCommandError("hold place", err)
		}
		return nil
	})
}

func runHoldRelease(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		hold, err := a.holdMgr.ReleaseHold(ctx, args[0], holdReleaseFlags.reason)
		if err != nil {
			return cli.NewCommandError("hold release", err)
		}
		if hold.Status != records.HoldReleased {
			fmt.Fprintf(cmd.OutOrStdout(), "Hold %s is %s, nothing to release\n", hold.ID, hold.Status)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Released hold %s on %s %s\n", hold.ID, hold.EntityType, hold.EntityID)
		return nil
	})
}

func runHoldList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(holdListFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	filter, err := holdFilter(holdListFlags.entityType, holdListFlags.entityID, holdListFlags.status, holdListFlags.limit)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		holds, err := a.holdMgr.ListHolds(ctx, filter)
		if err != nil {
			return cli.NewCommandError("hold list", err)
		}
		return writeHolds(cmd.OutOrStdout(), format, holds)
	})
}

func runHoldExpire(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		expired, err := a.holdMgr.ExpireHolds(ctx)
		for _, h := range expired {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Expired hold %s on %s %s\n", h.ID, h.EntityType, h.EntityID)
		}
		if err != nil {
			return cli.NewCommandError("hold expire", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d hold(s) expired\n", len(expired))
		return nil
	})
}

// holdTable renders legal holds.
type holdTable []*records.LegalHold

func (t holdTable) Header() []string {
	return []string{"ID", "ENTITY TYPE", "ENTITY ID", "STATUS", "REASON", "CASE", "REQUESTED BY", "START", "END"}
}

func (t holdTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, h := range t {
		end := ""
		if h.EndDate != nil {
			end = h.EndDate.Format(time.DateOnly)
		}
		rows = append(rows, []string{
			h.ID,
			string(h.EntityType),
			h.EntityID,
			string(h.Status),
			h.Reason,
			h.CaseReference,
			h.RequestedBy,
			h.StartDate.Format(time.DateOnly),
			end,
		})
	}
	return rows
}

func writeHolds(w io.Writer, format cli.OutputFormat, holds []*records.LegalHold) error {
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(w, holds)
	}
	return cli.NewFormatter(format).FormatTo(w, holdTable(holds))
}

func holdFilter(entityType, entityID, status string, limit int) (*records.HoldFilter, error) {
	filter := &records.HoldFilter{
		EntityID: entityID,
		Limit:    limit,
	}
	if entityType != "" {
		t, err := parseEntityType(entityType)
		if err != nil {
			return nil, err
		}
		filter.EntityType = t
	}
	if status != "" {
		s, err := parseHoldStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = s
	}
	return filter, nil
}

func parseEntityType(s string) (records.EntityType, error) {
	for _, t := range []records.EntityType{records.EntityPolicy, records.EntityAcknowledgement, records.EntityAuditLog} {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", cli.NewConfigError("type", fmt.Sprintf("unknown entity type %q (expected Policy, Acknowledgement or AuditLog)", s))
}

func parseHoldStatus(s string) (records.HoldStatus, error) {
	for _, st := range []records.HoldStatus{records.HoldActive, records.HoldReleased, records.HoldExpired} {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", cli.NewConfigError("status", fmt.Sprintf("unknown hold status %q (expected active, released or expired)", s))
}

// parseDate accepts a calendar date or an RFC3339 timestamp. A calendar
// date means the end of that day in UTC. An empty string returns nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		end := t.Add(24*time.Hour - time.Nanosecond)
		return &end, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
	}
	return &t, nil
}
