package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"mercator-hq/custodian/pkg/actor"
	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/recorder"
	"mercator-hq/custodian/pkg/audit/sink"
	"mercator-hq/custodian/pkg/authz"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/legalhold"
	"mercator-hq/custodian/pkg/messaging"
	"mercator-hq/custodian/pkg/notify"
	"mercator-hq/custodian/pkg/policy/git"
	"mercator-hq/custodian/pkg/policy/manager"
	"mercator-hq/custodian/pkg/records"
	"mercator-hq/custodian/pkg/records/store"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/secrets"
	"mercator-hq/custodian/pkg/telemetry/metrics"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// app holds every component built from one configuration.
type app struct {
	cfg *config.Config

	store    records.Store
	calc     *retention.Calculator
	policies *manager.Manager
	holds    *legalhold.Registry
	holdMgr  *legalhold.Manager
	builder  *retention.Builder
	executor *retention.Executor
	metrics  *metrics.Collector
	tracer   *tracing.Tracer

	auditSink audit.Sink
	recorder  *recorder.Recorder

	closers []io.Closer
	logger  *slog.Logger
}

// newApp builds the engine from cfg and loads the policy set. The caller
// must call Close.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: slog.Default().With("component", "custodian"),
	}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg

	var err error
	a.tracer, err = tracing.New(ctx, &cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	// Closed last so spans from shutdown are flushed.
	a.closers = append(a.closers, closerFunc(func() error {
		return a.tracer.Shutdown(context.Background())
	}))

	if err := resolveSecrets(ctx, cfg); err != nil {
		return err
	}

	a.store, err = store.Open(ctx, storeOptions(&cfg.Store))
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	a.closers = append(a.closers, a.store)

	periods, err := defaultPeriods(cfg.Retention.DefaultPeriods)
	if err != nil {
		return err
	}
	a.calc = retention.NewCalculator(retention.WithDefaultPeriods(periods))

	a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.policies, err = manager.NewManager(ctx, policyConfig(&cfg.Policy), a.calc,
		manager.WithReloadHook(a.metrics.PolicyReloaded),
	)
	if err != nil {
		return fmt.Errorf("failed to create policy manager: %w", err)
	}
	a.closers = append(a.closers, a.policies)
	if err := a.policies.LoadPolicies(); err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	var emitter audit.Emitter = audit.Nop{}
	if config.Bool(cfg.Audit.Enabled, true) {
		a.auditSink, err = openAuditSink(ctx, &cfg.Audit)
		if err != nil {
			return err
		}
		a.recorder = recorder.NewRecorder(a.auditSink, &recorder.Config{
			Enabled:      true,
			AsyncBuffer:  cfg.Audit.AsyncBuffer,
			WriteTimeout: cfg.Audit.WriteTimeout,
		})
		a.recorder.OnFailure(a.metrics.AuditFailure)
		// Closed in reverse: the recorder drains into the sink first.
		a.closers = append(a.closers, a.auditSink, a.recorder)
		emitter = a.recorder
	}

	sender, err := openSender(ctx, &cfg.Notify)
	if err != nil {
		return err
	}
	if c, ok := sender.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	authorizer, err := authz.NewAuthorizer(authz.Config{
		Mode:       cfg.Authz.Mode,
		ModelPath:  cfg.Authz.ModelPath,
		PolicyPath: cfg.Authz.PolicyPath,
	})
	if err != nil {
		return err
	}

	defaultActor := actor.Actor{
		ID:          cfg.Actor.ID,
		Email:       cfg.Actor.Email,
		DisplayName: cfg.Actor.DisplayName,
		Roles:       cfg.Actor.Roles,
	}
	resolver := actor.ContextResolver{Default: &defaultActor}

	a.holds = legalhold.NewRegistry(a.store)
	a.holdMgr = legalhold.NewManager(a.store, a.holds,
		legalhold.WithEmitter(emitter),
		legalhold.WithActorResolver(resolver),
		legalhold.WithAuthorizer(authorizer),
	)

	a.builder = retention.NewBuilder(a.store, a.holds, a.policies, a.calc,
		retention.WithFetchConcurrency(cfg.Retention.FetchConcurrency),
		retention.WithBuilderObserver(a.metrics),
	)

	execOpts := []retention.ExecutorOption{
		retention.WithEmitter(emitter),
		retention.WithActorResolver(resolver),
		retention.WithAuthorizer(authorizer),
		retention.WithObserver(a.metrics),
	}
	if sender != nil {
		execOpts = append(execOpts, retention.WithNotifier(sender))
	}
	a.executor = retention.NewExecutor(a.store, a.builder, a.holds, a.policies, execOpts...)

	a.logger.Info("engine initialized",
		"store", cfg.Store.Backend,
		"policy_mode", cfg.Policy.Mode,
		"policies", a.policies.Registry().Count(),
		"policy_version", a.policies.Version(),
		"audit_enabled", a.recorder != nil,
		"tracing_enabled", a.tracer.Enabled(),
	)
	return nil
}

// ProcessExpired runs a sweep and refreshes the active hold gauge, so the
// scheduler keeps the metrics current between sweeps.
func (a *app) ProcessExpired(ctx context.Context, dryRun bool) (*retention.BatchResult, error) {
	result, err := a.executor.ProcessExpired(ctx, dryRun)
	_ = a.metrics.RefreshHolds(ctx, a.holds)
	return result, err
}

// auditQuerier returns the configured sink as a Querier.
func (a *app) auditQuerier() (audit.Querier, error) {
	if a.auditSink == nil {
		return nil, errors.New("audit recording is disabled")
	}
	q, ok := a.auditSink.(audit.Querier)
	if !ok {
		return nil, fmt.Errorf("audit sinks %v cannot be queried", a.cfg.Audit.Sinks)
	}
	return q, nil
}

// Close releases every component in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// resolveSecrets replaces ${secret:name} references in credential fields.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	providers := make([]secrets.Provider, 0, len(cfg.Secrets.Providers))
	for _, name := range cfg.Secrets.Providers {
		switch name {
		case "env":
			providers = append(providers, secrets.NewEnvProvider(cfg.Secrets.EnvPrefix))
		case "file":
			p, err := secrets.NewFileProvider(cfg.Secrets.Dir)
			if err != nil {
				return err
			}
			providers = append(providers, p)
		default:
			return fmt.Errorf("unknown secret provider %q", name)
		}
	}

	err := secrets.NewManager(providers...).ResolveFields(ctx, map[string]*string{
		"store.postgres.dsn":                 &cfg.Store.Postgres.DSN,
		"policy.git.auth.token":              &cfg.Policy.Git.Auth.Token,
		"policy.git.auth.ssh_key_passphrase": &cfg.Policy.Git.Auth.SSHKeyPassphrase,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve secrets: %w", err)
	}
	return nil
}

func storeOptions(cfg *config.StoreConfig) store.Options {
	return store.Options{
		Backend: cfg.Backend,
		SQLite: &store.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      config.Bool(cfg.SQLite.WALMode, true),
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		},
		Postgres: &store.PostgresConfig{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
			Migrate:         config.Bool(cfg.Postgres.Migrate, true),
		},
	}
}

func policyConfig(cfg *config.PolicyConfig) *manager.Config {
	return &manager.Config{
		Mode:             cfg.Mode,
		Path:             cfg.Path,
		Watch:            cfg.Watch,
		DebounceInterval: cfg.DebounceInterval,
		Git: git.Config{
			Repository:   cfg.Git.Repository,
			Branch:       cfg.Git.Branch,
			Path:         cfg.Git.Path,
			LocalPath:    cfg.Git.LocalPath,
			PollInterval: cfg.Git.PollInterval,
			Timeout:      cfg.Git.Timeout,
			Auth: git.AuthConfig{
				Type:             cfg.Git.Auth.Type,
				Token:            cfg.Git.Auth.Token,
				SSHKeyPath:       cfg.Git.Auth.SSHKeyPath,
				SSHKeyPassphrase: cfg.Git.Auth.SSHKeyPassphrase,
			},
		},
	}
}

func defaultPeriods(raw map[string]int) (map[retention.Category]int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	periods := make(map[retention.Category]int, len(raw))
	for name, days := range raw {
		category, ok := parseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown retention category %q", name)
		}
		periods[category] = days
	}
	return periods, nil
}

func parseCategory(name string) (retention.Category, bool) {
	for _, c := range []retention.Category{
		retention.CategoryStandard,
		retention.CategoryExtended,
		retention.CategoryRegulatory,
		retention.CategoryLegal,
		retention.CategoryPermanent,
	} {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

func openAuditSink(ctx context.Context, cfg *config.AuditConfig) (audit.Sink, error) {
	sinks := make([]audit.Sink, 0, len(cfg.Sinks))
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	for _, name := range cfg.Sinks {
		switch name {
		case "log":
			sinks = append(sinks, sink.NewLog())
		case "sqlite":
			s, err := sink.NewSQLite(sink.SQLiteConfig{
				Path:        cfg.SQLite.Path,
				BusyTimeout: cfg.SQLite.BusyTimeout,
			})
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("failed to open audit database: %w", err)
			}
			sinks = append(sinks, s)
		case "pubsub":
			publisher, err := messaging.NewTopicPublisher(ctx, messaging.TopicConfig{
				ProjectID: cfg.PubSub.ProjectID,
				TopicID:   cfg.PubSub.TopicID,
			})
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("failed to create audit publisher: %w", err)
			}
			sinks = append(sinks, sink.NewPubSub(publisher))
		default:
			closeAll()
			return nil, fmt.Errorf("unknown audit sink %q", name)
		}
	}

	switch len(sinks) {
	case 0:
		return sink.NewLog(), nil
	case 1:
		return sinks[0], nil
	default:
		return sink.NewMulti(sinks...), nil
	}
}

func openSender(ctx context.Context, cfg *config.NotifyConfig) (notify.Sender, error) {
	switch cfg.Sender {
	case "", "log":
		return notify.NewLog(), nil
	case "none":
		return nil, nil
	case "pubsub":
		publisher, err := messaging.NewTopicPublisher(ctx, messaging.TopicConfig{
			ProjectID: cfg.PubSub.ProjectID,
			TopicID:   cfg.PubSub.TopicID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create notification publisher: %w", err)
		}
		return notify.NewPubSub(publisher), nil
	default:
		return nil, fmt.Errorf("unknown notification sender %q", cfg.Sender)
	}
}
