package config

import "time"

// Default values for configuration fields.
const (
	// Store defaults
	DefaultStoreBackend        = "sqlite"
	DefaultSQLitePath          = "data/custodian.db"
	DefaultSQLiteMaxOpenConns  = 10
	DefaultSQLiteMaxIdleConns  = 5
	DefaultSQLiteWALMode       = true
	DefaultSQLiteBusyTimeout   = 5 * time.Second
	DefaultPostgresMaxConns    = int32(10)
	DefaultPostgresMinConns    = int32(1)
	DefaultPostgresMaxConnLife = time.Hour
	DefaultPostgresMaxConnIdle = 30 * time.Minute
	DefaultPostgresMigrate     = true

	// Policy defaults
	DefaultPolicyMode            = "file"
	DefaultPolicyPath            = "./policies"
	DefaultPolicyDebounce        = 100 * time.Millisecond
	DefaultPolicyGitBranch       = "main"
	DefaultPolicyGitPath         = "policies"
	DefaultPolicyGitPollInterval = 60 * time.Second
	DefaultPolicyGitTimeout      = 30 * time.Second
	DefaultPolicyGitAuthType     = "none"

	// Retention defaults
	DefaultRetentionSchedule   = "0 2 * * *"
	DefaultRetentionRunTimeout = 30 * time.Minute
	DefaultFetchConcurrency    = 3
	DefaultExpireHolds         = true
	DefaultExpiringWindowDays  = 30

	// Audit defaults
	DefaultAuditEnabled           = true
	DefaultAuditSink              = "sqlite"
	DefaultAuditSQLitePath        = "data/audit.db"
	DefaultAuditSQLiteBusyTimeout = 5 * time.Second
	DefaultAuditAsyncBuffer       = 1000
	DefaultAuditWriteTimeout      = 5 * time.Second

	// Notify defaults
	DefaultNotifySender = "log"

	// Actor defaults
	DefaultActorID = "system"

	// Authz defaults
	DefaultAuthzMode = "disabled"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "CUSTODIAN_SECRET_"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultLoggingRedactPII     = true
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "custodian"
	DefaultTracingSampler       = "always"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingEndpoint      = "localhost:4317"
	DefaultTracingInsecure      = true
	DefaultTracingTimeout       = 10 * time.Second
	DefaultTracingServiceName   = "custodian"
	DefaultHealthEnabled        = true
	DefaultHealthCheckTimeout   = 5 * time.Second
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyStoreDefaults(&cfg.Store)
	applyPolicyDefaults(&cfg.Policy)

	if len(cfg.Secrets.Providers) == 0 {
		cfg.Secrets.Providers = []string{"env"}
	}
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}

	// Retention defaults
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}
	if cfg.Retention.RunTimeout == 0 {
		cfg.Retention.RunTimeout = DefaultRetentionRunTimeout
	}
	if cfg.Retention.FetchConcurrency == 0 {
		cfg.Retention.FetchConcurrency = DefaultFetchConcurrency
	}
	if cfg.Retention.ExpireHolds == nil {
		cfg.Retention.ExpireHolds = boolPtr(DefaultExpireHolds)
	}
	if cfg.Retention.ExpiringWindowDays == 0 {
		cfg.Retention.ExpiringWindowDays = DefaultExpiringWindowDays
	}

	// Audit defaults
	if cfg.Audit.Enabled == nil {
		cfg.Audit.Enabled = boolPtr(DefaultAuditEnabled)
	}
	if len(cfg.Audit.Sinks) == 0 {
		cfg.Audit.Sinks = []string{DefaultAuditSink}
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.AsyncBuffer == 0 {
		cfg.Audit.AsyncBuffer = DefaultAuditAsyncBuffer
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = DefaultAuditWriteTimeout
	}

	if cfg.Notify.Sender == "" {
		cfg.Notify.Sender = DefaultNotifySender
	}
	if cfg.Actor.ID == "" {
		cfg.Actor.ID = DefaultActorID
	}
	if cfg.Authz.Mode == "" {
		cfg.Authz.Mode = DefaultAuthzMode
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.RedactPII == nil {
		cfg.Telemetry.Logging.RedactPII = boolPtr(DefaultLoggingRedactPII)
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = boolPtr(DefaultMetricsEnabled)
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	applyTracingDefaults(&cfg.Telemetry.Tracing)
	if cfg.Telemetry.Health.Enabled == nil {
		cfg.Telemetry.Health.Enabled = boolPtr(DefaultHealthEnabled)
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

func applyTracingDefaults(cfg *TracingConfig) {
	if cfg.Sampler == "" {
		cfg.Sampler = DefaultTracingSampler
	}
	if cfg.SampleRatio == 0 {
		cfg.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Insecure == nil {
		cfg.Insecure = boolPtr(DefaultTracingInsecure)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTracingTimeout
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultTracingServiceName
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultStoreBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultSQLitePath
	}
	if cfg.SQLite.MaxOpenConns == 0 {
		cfg.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.SQLite.MaxIdleConns == 0 {
		cfg.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.SQLite.WALMode == nil {
		cfg.SQLite.WALMode = boolPtr(DefaultSQLiteWALMode)
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if cfg.Postgres.MinConns == 0 {
		cfg.Postgres.MinConns = DefaultPostgresMinConns
	}
	if cfg.Postgres.MaxConnLifetime == 0 {
		cfg.Postgres.MaxConnLifetime = DefaultPostgresMaxConnLife
	}
	if cfg.Postgres.MaxConnIdleTime == 0 {
		cfg.Postgres.MaxConnIdleTime = DefaultPostgresMaxConnIdle
	}
	if cfg.Postgres.Migrate == nil {
		cfg.Postgres.Migrate = boolPtr(DefaultPostgresMigrate)
	}
}

func applyPolicyDefaults(cfg *PolicyConfig) {
	if cfg.Mode == "" {
		cfg.Mode = DefaultPolicyMode
	}
	if cfg.Path == "" && cfg.Mode == "file" {
		cfg.Path = DefaultPolicyPath
	}
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = DefaultPolicyDebounce
	}
	if cfg.Git.Branch == "" {
		cfg.Git.Branch = DefaultPolicyGitBranch
	}
	if cfg.Git.Path == "" {
		cfg.Git.Path = DefaultPolicyGitPath
	}
	if cfg.Git.PollInterval == 0 {
		cfg.Git.PollInterval = DefaultPolicyGitPollInterval
	}
	if cfg.Git.Timeout == 0 {
		cfg.Git.Timeout = DefaultPolicyGitTimeout
	}
	if cfg.Git.Auth.Type == "" {
		cfg.Git.Auth.Type = DefaultPolicyGitAuthType
	}
}
