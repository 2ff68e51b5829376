package cli

import (
	"errors"
	"fmt"

	"mercator-hq/custodian/pkg/authz"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/records"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitConfig       = 2
	ExitDenied       = 3
	ExitNotFound     = 4
	ExitPartialSweep = 5
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// SweepError reports a sweep that ran to completion with item errors.
type SweepError struct {
	SweepID string
	Errors  int
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("sweep %s completed with %d error(s)", e.SweepID, e.Errors)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr   *ConfigError
		validErr config.ValidationError
		sweepErr *SweepError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &validErr):
		return ExitConfig
	case errors.Is(err, authz.ErrDenied):
		return ExitDenied
	case records.IsNotFound(err):
		return ExitNotFound
	case errors.As(err, &sweepErr):
		return ExitPartialSweep
	default:
		return ExitFailure
	}
}
