package health

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/custodian/pkg/records"
)

// HoldQuerier is the part of the record store the store check uses.
type HoldQuerier interface {
	QueryHolds(ctx context.Context, filter *records.HoldFilter) ([]*records.LegalHold, error)
}

// PolicyState reports the result of the latest policy load.
type PolicyState interface {
	LastLoadError() error
}

// Runner reports whether the retention scheduler is running.
type Runner interface {
	IsRunning() bool
}

// StoreCheck fails when the record store cannot answer a one-row hold query.
func StoreCheck(store HoldQuerier) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := store.QueryHolds(ctx, &records.HoldFilter{Limit: 1}); err != nil {
			return fmt.Errorf("record store unavailable: %w", err)
		}
		return nil
	}
}

// PolicyCheck fails while the latest policy load or reload has failed.
func PolicyCheck(policies PolicyState) CheckFunc {
	return func(ctx context.Context) error {
		if err := policies.LastLoadError(); err != nil {
			return fmt.Errorf("last policy load failed: %w", err)
		}
		return nil
	}
}

// SchedulerCheck fails when the scheduler is not running.
func SchedulerCheck(r Runner) CheckFunc {
	return func(ctx context.Context) error {
		if !r.IsRunning() {
			return errors.New("retention scheduler is not running")
		}
		return nil
	}
}
