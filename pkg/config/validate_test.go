package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "unknown backend",
			mutate:    func(c *Config) { c.Store.Backend = "mysql" },
			wantField: "store.backend",
		},
		{
			name:      "postgres without dsn",
			mutate:    func(c *Config) { c.Store.Backend = "postgres" },
			wantField: "store.postgres.dsn",
		},
		{
			name: "postgres pool bounds",
			mutate: func(c *Config) {
				c.Store.Backend = "postgres"
				c.Store.Postgres.DSN = "postgres://localhost/custodian"
				c.Store.Postgres.MinConns = 50
			},
			wantField: "store.postgres.min_conns",
		},
		{
			name:      "sqlite idle above open",
			mutate:    func(c *Config) { c.Store.SQLite.MaxIdleConns = 50 },
			wantField: "store.sqlite.max_idle_conns",
		},
		{
			name:      "unknown policy mode",
			mutate:    func(c *Config) { c.Policy.Mode = "s3" },
			wantField: "policy.mode",
		},
		{
			name:      "git without repository",
			mutate:    func(c *Config) { c.Policy.Mode = "git" },
			wantField: "policy.git.repository",
		},
		{
			name: "git token auth without token",
			mutate: func(c *Config) {
				c.Policy.Mode = "git"
				c.Policy.Git.Repository = "https://example.com/p.git"
				c.Policy.Git.Auth.Type = "token"
			},
			wantField: "policy.git.auth.token",
		},
		{
			name:      "bad cron",
			mutate:    func(c *Config) { c.Retention.Schedule = "every night" },
			wantField: "retention.schedule",
		},
		{
			name:      "zero fetch concurrency",
			mutate:    func(c *Config) { c.Retention.FetchConcurrency = 0 },
			wantField: "retention.fetch_concurrency",
		},
		{
			name:      "unknown default period category",
			mutate:    func(c *Config) { c.Retention.DefaultPeriods = map[string]int{"Forever": 10} },
			wantField: "retention.default_periods.Forever",
		},
		{
			name:      "invalid default period",
			mutate:    func(c *Config) { c.Retention.DefaultPeriods = map[string]int{"Standard": -5} },
			wantField: "retention.default_periods.Standard",
		},
		{
			name:      "unknown audit sink",
			mutate:    func(c *Config) { c.Audit.Sinks = []string{"kafka"} },
			wantField: "audit.sinks",
		},
		{
			name:      "duplicate audit sink",
			mutate:    func(c *Config) { c.Audit.Sinks = []string{"log", "log"} },
			wantField: "audit.sinks",
		},
		{
			name:      "pubsub audit sink without project",
			mutate:    func(c *Config) { c.Audit.Sinks = []string{"pubsub"}; c.Audit.PubSub.TopicID = "audit" },
			wantField: "audit.pubsub.project_id",
		},
		{
			name:      "pubsub notify without topic",
			mutate:    func(c *Config) { c.Notify.Sender = "pubsub"; c.Notify.PubSub.ProjectID = "acme" },
			wantField: "notify.pubsub.topic_id",
		},
		{
			name:      "unknown sender",
			mutate:    func(c *Config) { c.Notify.Sender = "smtp" },
			wantField: "notify.sender",
		},
		{
			name:      "unknown authz mode",
			mutate:    func(c *Config) { c.Authz.Mode = "audit" },
			wantField: "authz.mode",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "bad metrics address",
			mutate:    func(c *Config) { c.Telemetry.Metrics.ListenAddress = "9090" },
			wantField: "telemetry.metrics.listen_address",
		},
		{
			name:      "relative metrics path",
			mutate:    func(c *Config) { c.Telemetry.Metrics.Path = "metrics" },
			wantField: "telemetry.metrics.path",
		},
		{
			name:      "unknown secret provider",
			mutate:    func(c *Config) { c.Secrets.Providers = []string{"env", "vault"} },
			wantField: "secrets.providers",
		},
		{
			name:      "file secrets without dir",
			mutate:    func(c *Config) { c.Secrets.Providers = []string{"file"} },
			wantField: "secrets.dir",
		},
		{
			name: "unknown tracing sampler",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Sampler = "sometimes"
			},
			wantField: "telemetry.tracing.sampler",
		},
		{
			name: "tracing ratio above one",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.SampleRatio = 2
			},
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name: "tracing endpoint without port",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Endpoint = "collector"
			},
			wantField: "telemetry.tracing.endpoint",
		},
		{
			name:      "negative health check timeout",
			mutate:    func(c *Config) { c.Telemetry.Health.CheckTimeout = -time.Second },
			wantField: "telemetry.health.check_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() errors = %v, want field %q", verr.Errors, tt.wantField)
			}
		})
	}
}

func TestValidate_SkipsDisabledSections(t *testing.T) {
	cfg := validConfig()
	disabled := false
	cfg.Audit.Enabled = &disabled
	cfg.Audit.Sinks = []string{"kafka"}
	cfg.Telemetry.Metrics.Enabled = &disabled
	cfg.Telemetry.Metrics.ListenAddress = "nope"
	cfg.Telemetry.Tracing.Sampler = "sometimes"

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "store.backend", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: store.backend: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "x"},
		{Field: "b", Message: "y"},
	}}
	if got := multi.Error(); !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: y") {
		t.Errorf("Error() = %q", got)
	}
}
