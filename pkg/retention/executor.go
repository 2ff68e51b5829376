package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/actor"
	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/authz"
	"mercator-hq/custodian/pkg/notify"
	"mercator-hq/custodian/pkg/records"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// HoldChecker answers the live legal-hold question for a single record.
type HoldChecker interface {
	IsHeld(ctx context.Context, entityType records.EntityType, id string) (bool, error)
}

// Executor applies expiry actions to expired schedule entries.
type Executor struct {
	store      records.Store
	builder    *Builder
	holds      HoldChecker
	policies   PolicySource
	notifier   notify.Sender
	emitter    audit.Emitter
	actors     actor.Resolver
	authorizer *authz.Authorizer
	observer   Observer
	now        func() time.Time
	logger     *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithNotifier sets the notification sender. Without one, Notify actions
// are counted but nothing is sent.
func WithNotifier(s notify.Sender) ExecutorOption {
	return func(e *Executor) {
		e.notifier = s
	}
}

// WithEmitter sets the audit emitter. Default: audit.Nop.
func WithEmitter(em audit.Emitter) ExecutorOption {
	return func(e *Executor) {
		e.emitter = em
	}
}

// WithActorResolver sets how the acting identity is resolved.
// Default: the context actor, falling back to actor.System.
func WithActorResolver(r actor.Resolver) ExecutorOption {
	return func(e *Executor) {
		e.actors = r
	}
}

// WithAuthorizer gates non-dry-run sweeps.
func WithAuthorizer(a *authz.Authorizer) ExecutorOption {
	return func(e *Executor) {
		e.authorizer = a
	}
}

// WithObserver reports each completed batch to o.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		e.observer = o
	}
}

// WithExecutorClock overrides the time used for archive timestamps.
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.now = now
	}
}

// NewExecutor creates an executor. builder supplies the schedule, holds
// the live re-check.
func NewExecutor(store records.Store, builder *Builder, holds HoldChecker, policies PolicySource, opts ...ExecutorOption) *Executor {
	system := actor.System
	e := &Executor{
		store:    store,
		builder:  builder,
		holds:    holds,
		policies: policies,
		emitter:  audit.Nop{},
		actors:   actor.ContextResolver{Default: &system},
		observer: nopObserver{},
		now:      time.Now,
		logger:   slog.Default().With("component", "retention.executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessExpired builds a fresh schedule and applies the expiry action of
// every expired entry in schedule order. Held entries are counted as
// skipped. Per-entry failures are
// collected into the result. An error is returned only when the sweep
// cannot start.
func (e *Executor) ProcessExpired(ctx context.Context, dryRun bool) (_ *BatchResult, err error) {
	ctx, span := tracing.Start(ctx, "retention.sweep", tracing.AttrDryRun.Bool(dryRun))
	defer func() { tracing.End(span, err) }()

	act, err := e.actors.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve actor: %w", err)
	}
	if !dryRun {
		if err := e.authorizer.Authorize(act, authz.ObjectRetention, authz.ActionSweep); err != nil {
			return nil, err
		}
	}

	sched, err := e.builder.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate schedule: %w", err)
	}

	result := &BatchResult{
		SweepID:   uuid.New().String(),
		DryRun:    dryRun,
		Items:     []ItemResult{},
		Errors:    []string{},
		StartedAt: e.now().UTC(),
	}
	for _, ferr := range sched.Errors {
		result.Errors = append(result.Errors, ferr.Error())
	}

	span.SetAttributes(
		tracing.AttrSweepID.String(result.SweepID),
		tracing.AttrActor.String(act.ID),
	)
	ctx = logging.WithSweepID(ctx, result.SweepID)
	ctx = logging.WithOperation(ctx, string(audit.ActionSweep))
	ctx = logging.WithActor(ctx, act.ID)

	logger := e.logger.With("dry_run", dryRun)
	due := sched.Due()
	logger.InfoContext(ctx, "processing expired records", "count", len(due))

	for _, entry := range due {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("sweep interrupted: %v", err))
			break
		}

		item := e.processEntry(ctx, entry, act, dryRun, result)
		result.Items = append(result.Items, item)
		if item.Outcome == OutcomeFailed {
			logger.ErrorContext(ctx, "failed to process entry",
				"entity_type", item.EntityType,
				"entity_id", item.EntityID,
				"error", item.Error,
			)
		}
	}

	result.Duration = time.Since(result.StartedAt)
	e.emitSummary(ctx, result, act)
	e.observer.BatchCompleted(result)
	span.SetAttributes(
		tracing.AttrArchived.Int(result.Archived),
		tracing.AttrDeleted.Int(result.Deleted),
		tracing.AttrSkipped.Int(result.SkippedLegalHold),
		tracing.AttrErrors.Int(len(result.Errors)),
	)

	logger.InfoContext(ctx, "retention sweep complete",
		"total_processed", result.TotalProcessed,
		"archived", result.Archived,
		"deleted", result.Deleted,
		"review_required", result.ReviewRequired,
		"notifications_sent", result.NotificationsSent,
		"skipped_legal_hold", result.SkippedLegalHold,
		"already_archived", result.AlreadyArchived,
		"errors", len(result.Errors),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (e *Executor) processEntry(ctx context.Context, entry *ScheduleEntry, act actor.Actor, dryRun bool, result *BatchResult) ItemResult {
	result.TotalProcessed++
	item := ItemResult{
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		PolicyID:   entry.PolicyID,
	}

	fail := func(op string, err error) ItemResult {
		ierr := &ItemError{
			EntityType: string(entry.EntityType),
			EntityID:   entry.EntityID,
			Operation:  op,
			Cause:      err,
		}
		item.Outcome = OutcomeFailed
		item.Error = ierr.Error()
		result.Errors = append(result.Errors, ierr.Error())
		return item
	}

	if entry.IsOnLegalHold {
		result.SkippedLegalHold++
		item.Outcome = OutcomeSkippedHold
		return item
	}

	policy, ok := e.policies.Policy(entry.PolicyID)
	if !ok {
		return fail("policy_lookup", fmt.Errorf("policy %q not found", entry.PolicyID))
	}

	if policy.ExcludeOnLegalHold {
		held, err := e.holds.IsHeld(ctx, entry.EntityType, entry.EntityID)
		if err != nil {
			return fail("hold_check", err)
		}
		if held {
			result.SkippedLegalHold++
			item.Outcome = OutcomeSkippedHold
			return item
		}
	}

	switch policy.ActionOnExpiry {
	case ActionArchive:
		if entry.IsArchived {
			result.AlreadyArchived++
			item.Outcome = OutcomeAlreadyArchived
			return item
		}
		if !dryRun {
			id, err := e.archive(ctx, entry, policy, act)
			if err != nil {
				return fail("archive", err)
			}
			item.ArchiveID = id
		}
		result.Archived++
		item.Outcome = OutcomeArchived

	case ActionDelete:
		purge := entry.EntityType == records.EntityAcknowledgement
		if !purge && entry.IsArchived {
			result.AlreadyArchived++
			item.Outcome = OutcomeAlreadyArchived
			return item
		}
		if !dryRun {
			id, err := e.archive(ctx, entry, policy, act)
			if err != nil {
				return fail("archive", err)
			}
			item.ArchiveID = id

			if purge {
				if err := e.purge(ctx, entry, policy, id, act); err != nil {
					return fail("delete", err)
				}
			}
		}
		result.Deleted++
		item.Outcome = OutcomeDeleted

	case ActionReview:
		result.ReviewRequired++
		item.Outcome = OutcomeReviewRequired

	case ActionNotify:
		if !dryRun && len(policy.NotifyRecipients) > 0 && e.notifier != nil {
			if err := e.sendNotification(ctx, entry, policy, act); err != nil {
				return fail("notify", err)
			}
		}
		result.NotificationsSent++
		item.Outcome = OutcomeNotified

	default:
		return fail("resolve_action", fmt.Errorf("unknown action %q", policy.ActionOnExpiry))
	}
	return item
}

// archive snapshots the live record into the archive collection and marks
// the original archived.
func (e *Executor) archive(ctx context.Context, entry *ScheduleEntry, policy *Policy, act actor.Actor) (string, error) {
	rec, err := e.store.Get(ctx, entry.EntityType, entry.EntityID)
	if err != nil {
		return "", err
	}

	snapshot, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("snapshot record: %w", err)
	}

	now := e.now().UTC()
	archiveID, err := e.store.AddArchive(ctx, &records.ArchiveRecord{
		EntityType:      entry.EntityType,
		OriginalID:      entry.EntityID,
		EntityName:      rec.Name,
		Snapshot:        string(snapshot),
		ArchivedBy:      act.ID,
		ArchivedByEmail: act.Email,
		ArchivedAt:      now,
		PolicyID:        policy.ID,
		PolicyName:      policy.Name,
	})
	if err != nil {
		return "", err
	}

	archived := true
	update := &records.RecordUpdate{IsArchived: &archived, ArchivedAt: &now}
	if entry.EntityType == records.EntityPolicy {
		status := records.StatusArchived
		update.Status = &status
	}
	if err := e.store.Update(ctx, entry.EntityType, entry.EntityID, update); err != nil {
		return "", err
	}

	e.emit(ctx, audit.ActionArchive, entry, act, map[string]any{
		"archive_id": archiveID,
		"policy_id":  policy.ID,
	})
	return archiveID, nil
}

func (e *Executor) purge(ctx context.Context, entry *ScheduleEntry, policy *Policy, archiveID string, act actor.Actor) error {
	if err := e.store.Delete(ctx, entry.EntityType, entry.EntityID); err != nil {
		return err
	}
	e.emit(ctx, audit.ActionPurge, entry, act, map[string]any{
		"archive_id": archiveID,
		"policy_id":  policy.ID,
	})
	return nil
}

func (e *Executor) sendNotification(ctx context.Context, entry *ScheduleEntry, policy *Policy, act actor.Actor) error {
	subject := fmt.Sprintf("Retention period ended: %s %s", entry.EntityType, entry.EntityName)
	body := fmt.Sprintf("%s %q (%s) reached the end of its retention period under policy %q.",
		entry.EntityType, entry.EntityName, entry.EntityID, policy.Name)
	if entry.RetentionExpiryDate != nil {
		body += fmt.Sprintf(" Expiry date: %s.", entry.RetentionExpiryDate.Format(time.DateOnly))
	}

	if err := e.notifier.Send(ctx, policy.NotifyRecipients, subject, body); err != nil {
		return err
	}
	e.emit(ctx, audit.ActionNotify, entry, act, map[string]any{
		"policy_id":  policy.ID,
		"recipients": policy.NotifyRecipients,
	})
	return nil
}

func (e *Executor) emit(ctx context.Context, action audit.Action, entry *ScheduleEntry, act actor.Actor, details map[string]any) {
	event := audit.NewEvent(action)
	event.EntityType = string(entry.EntityType)
	event.EntityID = entry.EntityID
	event.EntityName = entry.EntityName
	event.ActorID = act.ID
	event.ActorEmail = act.Email
	for k, v := range details {
		event.Details[k] = v
	}
	e.emitter.Emit(ctx, event)
}

func (e *Executor) emitSummary(ctx context.Context, result *BatchResult, act actor.Actor) {
	event := audit.NewEvent(audit.ActionSweep)
	event.ActorID = act.ID
	event.ActorEmail = act.Email
	event.DryRun = result.DryRun
	event.Details["sweep_id"] = result.SweepID
	event.Details["total_processed"] = result.TotalProcessed
	event.Details["archived"] = result.Archived
	event.Details["deleted"] = result.Deleted
	event.Details["review_required"] = result.ReviewRequired
	event.Details["notifications_sent"] = result.NotificationsSent
	event.Details["skipped_legal_hold"] = result.SkippedLegalHold
	event.Details["already_archived"] = result.AlreadyArchived
	event.Details["error_count"] = len(result.Errors)
	e.emitter.Emit(ctx, event)
}
