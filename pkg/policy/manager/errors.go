package manager

import (
	"fmt"
	"strings"
)

// LoadError reports a file system problem reading policy files: missing
// files, permissions, size limits or bad encoding.
type LoadError struct {
	// FilePath is the path to the file that failed to load
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error that caused this load error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load policy file %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load policy file %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError reports YAML that could not be decoded into policies.
type ParseError struct {
	// FilePath is the path to the file that failed to parse
	FilePath string

	// Line and Column locate the error (1-indexed, zero when unknown)
	Line   int
	Column int

	// Message describes the parsing error
	Message string

	// Cause is the underlying parser error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %q at line %d, column %d: %s", e.FilePath, e.Line, e.Column, msg)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %q at line %d: %s", e.FilePath, e.Line, msg)
	}
	return fmt.Sprintf("parse error in %q: %s", e.FilePath, msg)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError locates a semantically invalid policy. Cause is usually a
// *retention.PolicyConfigError.
type ValidationError struct {
	// PolicyID is the ID of the policy that failed validation
	PolicyID string

	// FilePath and Line locate the policy definition, when known
	FilePath string
	Line     int

	// Message describes the validation error
	Message string

	// Cause is the underlying validation error
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := []string{"validation error"}

	if e.PolicyID != "" {
		parts = append(parts, fmt.Sprintf("in policy %q", e.PolicyID))
	}

	switch {
	case e.FilePath != "" && e.Line > 0:
		parts = append(parts, fmt.Sprintf("(%s:%d)", e.FilePath, e.Line))
	case e.FilePath != "":
		parts = append(parts, fmt.Sprintf("(%s)", e.FilePath))
	}

	return strings.Join(parts, " ") + ": " + e.Message
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// RegistryError represents an error that occurred during registry operations.
type RegistryError struct {
	// PolicyID is the ID of the policy involved in the error
	PolicyID string

	// Operation is the operation that failed (e.g., "replace")
	Operation string

	// Message describes the registry error
	Message string
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.PolicyID != "" {
		return fmt.Sprintf("registry error for policy %q during %s: %s", e.PolicyID, e.Operation, e.Message)
	}
	return fmt.Sprintf("registry error during %s: %s", e.Operation, e.Message)
}

// ErrorList collects every error found while loading a policy set so all
// malformed policies are reported at once.
type ErrorList struct {
	Errors []error
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %v\n", i+1, err)
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *ErrorList) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the list.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if the list contains any errors.
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil if there are no errors, the single error if there is one,
// or the ErrorList itself if there are multiple errors.
func (e *ErrorList) ToError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return e
}
