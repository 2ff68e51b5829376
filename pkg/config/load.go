package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "CUSTODIAN_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration without applying defaults. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if len(strings.TrimSpace(string(data))) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CUSTODIAN_SECTION_FIELD (e.g., CUSTODIAN_STORE_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply environment variable overrides
// 3. Apply default values
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean and duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Store overrides
	if val := getenv("STORE_BACKEND"); val != "" {
		cfg.Store.Backend = val
	}
	if val := getenv("STORE_SQLITE_PATH"); val != "" {
		cfg.Store.SQLite.Path = val
	}
	if val := getenv("STORE_POSTGRES_DSN"); val != "" {
		cfg.Store.Postgres.DSN = val
	}
	if val := getenv("STORE_POSTGRES_MAX_CONNS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 32); err == nil {
			cfg.Store.Postgres.MaxConns = int32(i)
		}
	}

	// Policy overrides
	if val := getenv("POLICY_MODE"); val != "" {
		cfg.Policy.Mode = val
	}
	if val := getenv("POLICY_PATH"); val != "" {
		cfg.Policy.Path = val
	}
	if val := getenv("POLICY_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.Watch = b
		}
	}
	if val := getenv("POLICY_GIT_REPOSITORY"); val != "" {
		cfg.Policy.Git.Repository = val
	}
	if val := getenv("POLICY_GIT_BRANCH"); val != "" {
		cfg.Policy.Git.Branch = val
	}
	if val := getenv("POLICY_GIT_PATH"); val != "" {
		cfg.Policy.Git.Path = val
	}
	if val := getenv("POLICY_GIT_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Policy.Git.PollInterval = d
		}
	}
	if val := getenv("POLICY_GIT_AUTH_TYPE"); val != "" {
		cfg.Policy.Git.Auth.Type = val
	}
	if val := getenv("POLICY_GIT_AUTH_TOKEN"); val != "" {
		cfg.Policy.Git.Auth.Token = val
	}
	if val := getenv("POLICY_GIT_AUTH_SSH_KEY_PATH"); val != "" {
		cfg.Policy.Git.Auth.SSHKeyPath = val
	}

	// Retention overrides
	if val := getenv("RETENTION_SCHEDULE"); val != "" {
		cfg.Retention.Schedule = val
	}
	if val := getenv("RETENTION_DRY_RUN"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Retention.DryRun = b
		}
	}
	if val := getenv("RETENTION_RUN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Retention.RunTimeout = d
		}
	}
	if val := getenv("RETENTION_FETCH_CONCURRENCY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Retention.FetchConcurrency = i
		}
	}

	// Audit overrides
	if val := getenv("AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = boolPtr(b)
		}
	}
	if val := getenv("AUDIT_SINKS"); val != "" {
		cfg.Audit.Sinks = splitList(val)
	}
	if val := getenv("AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLite.Path = val
	}
	if val := getenv("AUDIT_PUBSUB_PROJECT_ID"); val != "" {
		cfg.Audit.PubSub.ProjectID = val
	}
	if val := getenv("AUDIT_PUBSUB_TOPIC_ID"); val != "" {
		cfg.Audit.PubSub.TopicID = val
	}

	// Notify overrides
	if val := getenv("NOTIFY_SENDER"); val != "" {
		cfg.Notify.Sender = val
	}
	if val := getenv("NOTIFY_PUBSUB_PROJECT_ID"); val != "" {
		cfg.Notify.PubSub.ProjectID = val
	}
	if val := getenv("NOTIFY_PUBSUB_TOPIC_ID"); val != "" {
		cfg.Notify.PubSub.TopicID = val
	}

	// Actor overrides
	if val := getenv("ACTOR_ID"); val != "" {
		cfg.Actor.ID = val
	}
	if val := getenv("ACTOR_EMAIL"); val != "" {
		cfg.Actor.Email = val
	}
	if val := getenv("ACTOR_ROLES"); val != "" {
		cfg.Actor.Roles = splitList(val)
	}

	// Authz overrides
	if val := getenv("AUTHZ_MODE"); val != "" {
		cfg.Authz.Mode = val
	}

	// Telemetry overrides
	if val := getenv("TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := getenv("TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := getenv("TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = boolPtr(b)
		}
	}
	if val := getenv("TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := getenv("TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := getenv("TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := getenv("TELEMETRY_TRACING_SAMPLER"); val != "" {
		cfg.Telemetry.Tracing.Sampler = val
	}
	if val := getenv("TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func getenv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
