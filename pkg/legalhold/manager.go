package legalhold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/custodian/pkg/actor"
	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/authz"
	"mercator-hq/custodian/pkg/records"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// PlaceRequest asks for holds on one or more records of a single type.
type PlaceRequest struct {
	EntityType    records.EntityType
	EntityIDs     []string
	Reason        string
	CaseReference string
	EndDate       *time.Time
}

// Manager places and releases holds.
type Manager struct {
	store      records.Store
	registry   *Registry
	emitter    audit.Emitter
	actors     actor.Resolver
	authorizer *authz.Authorizer
	now        func() time.Time
	logger     *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEmitter sets the audit emitter. Default: audit.Nop.
func WithEmitter(e audit.Emitter) ManagerOption {
	return func(m *Manager) {
		m.emitter = e
	}
}

// WithActorResolver sets how the acting user is resolved.
// Default: actor.ContextResolver with no fallback.
func WithActorResolver(r actor.Resolver) ManagerOption {
	return func(m *Manager) {
		m.actors = r
	}
}

// WithAuthorizer gates place, release and expire. Nil disables checks.
func WithAuthorizer(a *authz.Authorizer) ManagerOption {
	return func(m *Manager) {
		m.authorizer = a
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a hold manager.
func NewManager(store records.Store, registry *Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		registry: registry,
		emitter:  audit.Nop{},
		actors:   actor.ContextResolver{},
		now:      time.Now,
		logger:   slog.Default().With("component", "legalhold.manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) authorize(ctx context.Context, op, action string) (actor.Actor, error) {
	act, err := m.actors.Current(ctx)
	if err != nil {
		return actor.Actor{}, newOperationError(op, "", "", err)
	}
	if err := m.authorizer.Authorize(act, authz.ObjectLegalHold, action); err != nil {
		return actor.Actor{}, newOperationError(op, "", "", err)
	}
	return act, nil
}

// PlaceHold creates an Active hold on every requested record. Records that
// already have a hold in force are skipped with a warning. Holds placed
// before a failure are kept and returned alongside the error.
func (m *Manager) PlaceHold(ctx context.Context, req *PlaceRequest) (_ []*records.LegalHold, err error) {
	const op = "place_hold"

	ctx, span := tracing.Start(ctx, "legalhold.place",
		tracing.AttrEntityType.String(string(req.EntityType)),
		tracing.AttrCount.Int(len(req.EntityIDs)),
	)
	defer func() { tracing.End(span, err) }()

	if strings.TrimSpace(req.Reason) == "" {
		return nil, newOperationError(op, string(req.EntityType), "", ErrReasonRequired)
	}
	if !governed(req.EntityType) {
		return nil, newOperationError(op, string(req.EntityType), "", ErrUnsupportedEntity)
	}

	act, err := m.authorize(ctx, op, authz.ActionPlace)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithActor(logging.WithOperation(ctx, string(audit.ActionHoldPlace)), act.ID)

	placed := make([]*records.LegalHold, 0, len(req.EntityIDs))
	for _, id := range req.EntityIDs {
		hold, err := m.placeOne(ctx, req, id, act)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to place legal hold",
				"entity_type", req.EntityType,
				"entity_id", id,
				"placed", len(placed),
				"error", err,
			)
			return placed, newOperationError(op, string(req.EntityType), id, err)
		}
		if hold != nil {
			placed = append(placed, hold)
		}
	}
	return placed, nil
}

func (m *Manager) placeOne(ctx context.Context, req *PlaceRequest, id string, act actor.Actor) (*records.LegalHold, error) {
	existing, held, err := m.registry.Lookup(ctx, req.EntityType, id)
	if err != nil {
		return nil, err
	}
	if held {
		m.logger.Warn("record already on legal hold, skipping",
			"entity_type", req.EntityType,
			"entity_id", id,
			"hold_id", existing.ID,
		)
		return nil, nil
	}

	rec, err := m.store.Get(ctx, req.EntityType, id)
	if err != nil {
		return nil, err
	}

	start := m.now().UTC()
	hold := &records.LegalHold{
		EntityType:       req.EntityType,
		EntityID:         id,
		EntityName:       rec.Name,
		Reason:           req.Reason,
		CaseReference:    req.CaseReference,
		RequestedBy:      act.ID,
		RequestedByEmail: act.Email,
		StartDate:        start,
		EndDate:          req.EndDate,
		Status:           records.HoldActive,
	}

	if req.EntityType.SupportsHoldFlags() {
		flags := &records.HoldFlags{
			Held:      true,
			Reason:    req.Reason,
			StartDate: &start,
			EndDate:   req.EndDate,
		}
		if err := m.store.Update(ctx, req.EntityType, id, &records.RecordUpdate{LegalHold: flags}); err != nil {
			return nil, fmt.Errorf("set hold flags: %w", err)
		}
	}

	holdID, err := m.store.AddHold(ctx, hold)
	if err != nil {
		err = fmt.Errorf("add hold: %w", err)
		if req.EntityType.SupportsHoldFlags() {
			clearErr := m.store.Update(ctx, req.EntityType, id, &records.RecordUpdate{LegalHold: &records.HoldFlags{}})
			if clearErr != nil {
				m.logger.ErrorContext(ctx, "failed to clear hold flags after add hold failure",
					"entity_type", req.EntityType,
					"entity_id", id,
					"error", clearErr,
				)
				err = errors.Join(err, fmt.Errorf("clear hold flags: %w", clearErr))
			}
		}
		return nil, err
	}
	hold.ID = holdID

	m.logger.InfoContext(ctx, "legal hold placed",
		"hold_id", hold.ID,
		"entity_type", hold.EntityType,
		"entity_id", hold.EntityID,
		"case_reference", hold.CaseReference,
	)

	m.emit(ctx, audit.ActionHoldPlace, hold, act, map[string]any{
		"hold_id":        hold.ID,
		"reason":         hold.Reason,
		"case_reference": hold.CaseReference,
	})
	return hold, nil
}

// ReleaseHold marks an Active hold Released and clears the target's flags.
// Releasing a hold that is not Active is a no-op that returns the hold
// unchanged.
func (m *Manager) ReleaseHold(ctx context.Context, holdID, reason string) (_ *records.LegalHold, err error) {
	const op = "release_hold"

	ctx, span := tracing.Start(ctx, "legalhold.release", tracing.AttrHoldID.String(holdID))
	defer func() { tracing.End(span, err) }()

	act, err := m.authorize(ctx, op, authz.ActionRelease)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithActor(logging.WithOperation(ctx, string(audit.ActionHoldRelease)), act.ID)

	hold, err := m.store.GetHold(ctx, holdID)
	if err != nil {
		return nil, newOperationError(op, "", holdID, err)
	}
	if hold.Status != records.HoldActive {
		m.logger.Warn("hold is not active, nothing to release",
			"hold_id", holdID,
			"status", hold.Status,
		)
		return hold, nil
	}

	now := m.now().UTC()
	hold.Status = records.HoldReleased
	hold.ReleasedBy = act.ID
	hold.ReleasedAt = &now
	hold.ReleaseReason = reason

	if err := m.closeHold(ctx, hold); err != nil {
		return nil, newOperationError(op, string(hold.EntityType), hold.EntityID, err)
	}

	m.logger.InfoContext(ctx, "legal hold released",
		"hold_id", hold.ID,
		"entity_type", hold.EntityType,
		"entity_id", hold.EntityID,
	)
	m.emit(ctx, audit.ActionHoldRelease, hold, act, map[string]any{
		"hold_id":        hold.ID,
		"release_reason": reason,
	})
	return hold, nil
}

// ExpireHolds moves Active holds whose end date has passed to Expired.
// It continues past individual failures and returns them joined.
func (m *Manager) ExpireHolds(ctx context.Context) (_ []*records.LegalHold, err error) {
	const op = "expire_holds"

	ctx, span := tracing.Start(ctx, "legalhold.expire")
	defer func() { tracing.End(span, err) }()

	act, err := m.authorize(ctx, op, authz.ActionExpire)
	if err != nil {
		return nil, err
	}

	holds, err := m.store.QueryHolds(ctx, &records.HoldFilter{Status: records.HoldActive})
	if err != nil {
		return nil, newOperationError(op, "", "", err)
	}

	now := m.now().UTC()
	var (
		expired []*records.LegalHold
		errs    []error
	)
	for _, hold := range holds {
		if hold.EndDate == nil || now.Before(*hold.EndDate) {
			continue
		}

		hold.Status = records.HoldExpired
		if err := m.closeHold(ctx, hold); err != nil {
			errs = append(errs, newOperationError(op, string(hold.EntityType), hold.EntityID, err))
			continue
		}
		expired = append(expired, hold)

		m.emit(ctx, audit.ActionHoldExpire, hold, act, map[string]any{
			"hold_id":  hold.ID,
			"end_date": hold.EndDate.Format(time.RFC3339),
		})
	}

	span.SetAttributes(tracing.AttrCount.Int(len(expired)))
	if len(expired) > 0 {
		m.logger.Info("expired legal holds", "count", len(expired))
	}
	return expired, errors.Join(errs...)
}

// ListHolds returns holds matching filter.
func (m *Manager) ListHolds(ctx context.Context, filter *records.HoldFilter) ([]*records.LegalHold, error) {
	holds, err := m.store.QueryHolds(ctx, filter)
	if err != nil {
		return nil, newOperationError("list_holds", "", "", err)
	}
	return holds, nil
}

// closeHold persists a hold leaving Active and clears target flags unless
// another hold is still in force on the same record.
func (m *Manager) closeHold(ctx context.Context, hold *records.LegalHold) error {
	if err := m.store.UpdateHold(ctx, hold); err != nil {
		return fmt.Errorf("update hold: %w", err)
	}
	if !hold.EntityType.SupportsHoldFlags() {
		return nil
	}

	_, stillHeld, err := m.registry.Lookup(ctx, hold.EntityType, hold.EntityID)
	if err != nil {
		return err
	}
	if stillHeld {
		return nil
	}

	err = m.store.Update(ctx, hold.EntityType, hold.EntityID, &records.RecordUpdate{
		LegalHold: &records.HoldFlags{},
	})
	if records.IsNotFound(err) {
		m.logger.Warn("held record no longer exists",
			"entity_type", hold.EntityType,
			"entity_id", hold.EntityID,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("clear hold flags: %w", err)
	}
	return nil
}

func (m *Manager) emit(ctx context.Context, action audit.Action, hold *records.LegalHold, act actor.Actor, details map[string]any) {
	event := audit.NewEvent(action)
	event.EntityType = string(hold.EntityType)
	event.EntityID = hold.EntityID
	event.EntityName = hold.EntityName
	event.ActorID = act.ID
	event.ActorEmail = act.Email
	for k, v := range details {
		event.Details[k] = v
	}
	m.emitter.Emit(ctx, event)
}

func governed(t records.EntityType) bool {
	for _, g := range records.GovernedTypes {
		if g == t {
			return true
		}
	}
	return false
}
