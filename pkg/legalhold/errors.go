package legalhold

import (
	"errors"
	"fmt"
)

var (
	// ErrReasonRequired is returned when a hold is placed without a reason.
	ErrReasonRequired = errors.New("hold reason is required")

	// ErrUnsupportedEntity is returned for entity types that cannot be held.
	ErrUnsupportedEntity = errors.New("entity type cannot be placed on hold")
)

// OperationError identifies the hold operation and target that failed.
type OperationError struct {
	Operation  string
	EntityType string
	EntityID   string
	Cause      error
}

func (e *OperationError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s %s %s failed: %v", e.Operation, e.EntityType, e.EntityID, e.Cause)
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

func newOperationError(op, entityType, entityID string, cause error) *OperationError {
	return &OperationError{
		Operation:  op,
		EntityType: entityType,
		EntityID:   entityID,
		Cause:      cause,
	}
}
