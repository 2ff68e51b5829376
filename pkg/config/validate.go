package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "store.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// retentionCategories are the category names accepted in
// retention.default_periods.
var retentionCategories = map[string]bool{
	"Standard":   true,
	"Extended":   true,
	"Regulatory": true,
	"Legal":      true,
	"Permanent":  true,
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateAuthz(&cfg.Authz)...)
	errs = append(errs, validateSecrets(&cfg.Secrets)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateSecrets(cfg *SecretsConfig) []FieldError {
	var errs []FieldError

	seen := make(map[string]bool)
	for _, p := range cfg.Providers {
		switch p {
		case "env":
		case "file":
			if cfg.Dir == "" {
				errs = append(errs, FieldError{
					Field:   "secrets.dir",
					Message: "secrets directory is required for the file provider",
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   "secrets.providers",
				Message: fmt.Sprintf("unknown secret provider %q: must be 'env' or 'file'", p),
			})
		}
		if seen[p] {
			errs = append(errs, FieldError{
				Field:   "secrets.providers",
				Message: fmt.Sprintf("duplicate secret provider %q", p),
			})
		}
		seen[p] = true
	}

	return errs
}

func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.max_open_conns",
				Message: "must be non-negative",
			})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns && cfg.SQLite.MaxOpenConns > 0 {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.max_idle_conns",
				Message: "cannot exceed max_open_conns",
			})
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			errs = append(errs, FieldError{
				Field:   "store.postgres.dsn",
				Message: "dsn is required for the postgres backend",
			})
		}
		if cfg.Postgres.MinConns > cfg.Postgres.MaxConns {
			errs = append(errs, FieldError{
				Field:   "store.postgres.min_conns",
				Message: "cannot exceed max_conns",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'postgres'", cfg.Backend),
		})
	}

	return errs
}

func validatePolicy(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case "file":
		if cfg.Path == "" {
			errs = append(errs, FieldError{
				Field:   "policy.path",
				Message: "path is required in file mode",
			})
		}
	case "git":
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{
				Field:   "policy.git.repository",
				Message: "repository is required in git mode",
			})
		}
		if cfg.Git.PollInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "policy.git.poll_interval",
				Message: "must be non-negative",
			})
		}
		switch cfg.Git.Auth.Type {
		case "none":
		case "token":
			if cfg.Git.Auth.Token == "" {
				errs = append(errs, FieldError{
					Field:   "policy.git.auth.token",
					Message: "token is required for token authentication",
				})
			}
		case "ssh":
			if cfg.Git.Auth.SSHKeyPath == "" {
				errs = append(errs, FieldError{
					Field:   "policy.git.auth.ssh_key_path",
					Message: "ssh_key_path is required for ssh authentication",
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   "policy.git.auth.type",
				Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token', or 'ssh'", cfg.Git.Auth.Type),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "policy.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'file' or 'git'", cfg.Mode),
		})
	}

	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "policy.debounce_interval",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "retention.schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Schedule, err),
			})
		}
	}
	if cfg.RunTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "retention.run_timeout",
			Message: "must be non-negative",
		})
	}
	if cfg.FetchConcurrency < 1 {
		errs = append(errs, FieldError{
			Field:   "retention.fetch_concurrency",
			Message: "must be at least 1",
		})
	}
	if cfg.ExpiringWindowDays < 0 {
		errs = append(errs, FieldError{
			Field:   "retention.expiring_window_days",
			Message: "must be non-negative",
		})
	}

	for category, days := range cfg.DefaultPeriods {
		field := "retention.default_periods." + category
		if !retentionCategories[category] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("unknown retention category %q", category),
			})
			continue
		}
		if days <= 0 && days != -1 {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("period must be positive or -1 (indefinite), got %d", days),
			})
		}
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if !Bool(cfg.Enabled, DefaultAuditEnabled) {
		return nil
	}

	seen := make(map[string]bool)
	for _, name := range cfg.Sinks {
		if seen[name] {
			errs = append(errs, FieldError{
				Field:   "audit.sinks",
				Message: fmt.Sprintf("duplicate sink %q", name),
			})
			continue
		}
		seen[name] = true

		switch name {
		case "log":
		case "sqlite":
			if cfg.SQLite.Path == "" {
				errs = append(errs, FieldError{
					Field:   "audit.sqlite.path",
					Message: "path is required for the sqlite sink",
				})
			}
		case "pubsub":
			errs = append(errs, validatePubSub("audit.pubsub", &cfg.PubSub)...)
		default:
			errs = append(errs, FieldError{
				Field:   "audit.sinks",
				Message: fmt.Sprintf("invalid sink %q: must be 'log', 'sqlite', or 'pubsub'", name),
			})
		}
	}

	if cfg.AsyncBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.async_buffer",
			Message: "must be non-negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.write_timeout",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateNotify(cfg *NotifyConfig) []FieldError {
	switch cfg.Sender {
	case "log", "none":
		return nil
	case "pubsub":
		return validatePubSub("notify.pubsub", &cfg.PubSub)
	default:
		return []FieldError{{
			Field:   "notify.sender",
			Message: fmt.Sprintf("invalid sender %q: must be 'log', 'pubsub', or 'none'", cfg.Sender),
		}}
	}
}

func validatePubSub(prefix string, cfg *PubSubConfig) []FieldError {
	var errs []FieldError
	if cfg.ProjectID == "" {
		errs = append(errs, FieldError{
			Field:   prefix + ".project_id",
			Message: "project_id is required",
		})
	}
	if cfg.TopicID == "" {
		errs = append(errs, FieldError{
			Field:   prefix + ".topic_id",
			Message: "topic_id is required",
		})
	}
	return errs
}

func validateAuthz(cfg *AuthzConfig) []FieldError {
	switch cfg.Mode {
	case "enforce", "shadow", "disabled":
		return nil
	default:
		return []FieldError{{
			Field:   "authz.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'enforce', 'shadow', or 'disabled'", cfg.Mode),
		}}
	}
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	if Bool(cfg.Metrics.Enabled, DefaultMetricsEnabled) {
		if _, _, err := net.SplitHostPort(cfg.Metrics.ListenAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: fmt.Sprintf("invalid listen address %q: %v", cfg.Metrics.ListenAddress, err),
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with '/'",
			})
		}
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "must be between 0.0 and 1.0",
			})
		}
		if _, _, err := net.SplitHostPort(cfg.Tracing.Endpoint); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: fmt.Sprintf("invalid collector endpoint %q: %v", cfg.Tracing.Endpoint, err),
			})
		}
	}

	if cfg.Health.CheckTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "must be non-negative",
		})
	}

	return errs
}
