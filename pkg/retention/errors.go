package retention

import "fmt"

// PolicyConfigError reports a malformed retention policy. It is raised when
// policies are loaded, never while processing records.
type PolicyConfigError struct {
	PolicyID string // Policy that failed validation
	Field    string // Offending field, e.g. "retention_period_days"
	Message  string // What is wrong
	Cause    error  // Underlying error, if any
}

// Error implements the error interface.
func (e *PolicyConfigError) Error() string {
	msg := fmt.Sprintf("malformed retention policy %q", e.PolicyID)
	if e.Field != "" {
		msg += fmt.Sprintf(" at %s", e.Field)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *PolicyConfigError) Unwrap() error {
	return e.Cause
}

// NewPolicyConfigError creates a new PolicyConfigError.
func NewPolicyConfigError(policyID, field, message string, cause error) *PolicyConfigError {
	return &PolicyConfigError{
		PolicyID: policyID,
		Field:    field,
		Message:  message,
		Cause:    cause,
	}
}

// ItemError identifies the record and operation that failed during batch
// processing.
type ItemError struct {
	EntityType string
	EntityID   string
	Operation  string
	Cause      error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %s failed: %v", e.EntityType, e.EntityID, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ItemError) Unwrap() error {
	return e.Cause
}
