package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/custodian/pkg/records"
)

// Sweeper runs one retention sweep.
type Sweeper interface {
	ProcessExpired(ctx context.Context, dryRun bool) (*BatchResult, error)
}

// HoldExpirer moves holds past their end date out of Active.
type HoldExpirer interface {
	ExpireHolds(ctx context.Context) ([]*records.LegalHold, error)
}

// Scheduler runs sweeps on a cron schedule (e.g. daily at 3 AM).
type Scheduler struct {
	sweeper  Sweeper
	expirer  HoldExpirer
	schedule string
	dryRun   bool
	timeout  time.Duration
	cron     *cron.Cron
	mu       sync.Mutex
	runMu    sync.Mutex
	logger   *slog.Logger
	running  bool
	last     *BatchResult
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithHoldExpiry expires overdue holds before every sweep.
func WithHoldExpiry(x HoldExpirer) SchedulerOption {
	return func(s *Scheduler) {
		s.expirer = x
	}
}

// WithRunTimeout bounds each scheduled run. Zero means no bound.
func WithRunTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// NewScheduler creates a scheduler for the given cron expression.
func NewScheduler(sweeper Sweeper, schedule string, dryRun bool, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		sweeper:  sweeper,
		schedule: schedule,
		dryRun:   dryRun,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "retention.scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins scheduled sweeps.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "0 0 * * 0"    - Weekly on Sunday at midnight
//
// An empty schedule leaves the scheduler stopped. The scheduler stops when
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("retention schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.RunNow(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.schedule,
		"dry_run", s.dryRun,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunNow performs one sweep immediately. Concurrent calls are serialized.
func (s *Scheduler) RunNow(ctx context.Context) *BatchResult {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.expirer != nil {
		expired, err := s.expirer.ExpireHolds(ctx)
		if err != nil {
			s.logger.Error("failed to expire legal holds", "error", err)
		} else if len(expired) > 0 {
			s.logger.Info("expired legal holds before sweep", "count", len(expired))
		}
	}

	s.logger.Info("starting scheduled retention sweep", "dry_run", s.dryRun)
	result, err := s.sweeper.ProcessExpired(ctx, s.dryRun)
	if err != nil {
		s.logger.Error("scheduled retention sweep failed", "error", err)
		return nil
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	if len(result.Errors) > 0 {
		s.logger.Warn("scheduled retention sweep completed with errors",
			"sweep_id", result.SweepID,
			"errors", len(result.Errors),
		)
	} else {
		s.logger.Debug("scheduled retention sweep completed", "sweep_id", result.SweepID)
	}
	return result
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		s.mu.Unlock()
		<-ctx.Done()
		s.mu.Lock()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled sweep time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}

// LastResult returns the result of the most recent successful sweep.
func (s *Scheduler) LastResult() *BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}
