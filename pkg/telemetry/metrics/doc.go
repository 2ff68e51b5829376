// Package metrics provides Prometheus metrics for Custodian.
//
// # Overview
//
// A Collector owns a private Prometheus registry and groups metrics by
// concern:
//
//   - Sweep Metrics: sweeps, processed entries by outcome, errors, duration
//   - Schedule Metrics: entries by required action, expired and held entries
//   - Hold Metrics: legal holds in force by entity type
//   - Policy Metrics: policy load attempts, duration, active policy count
//   - Audit Metrics: audit events that could not be written
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	// Schedules and sweeps
//	builder := retention.NewBuilder(store, holds, policies, calc,
//		retention.WithBuilderObserver(collector))
//	executor := retention.NewExecutor(store, builder, holds, policies,
//		retention.WithObserver(collector))
//
//	// Policy reloads and audit failures
//	mgr, _ := manager.NewManager(ctx, policyCfg, calc,
//		manager.WithReloadHook(collector.PolicyReloaded))
//	rec.OnFailure(collector.AuditFailure)
//
//	// Expose
//	go collector.Serve(ctx, "127.0.0.1:9090", "/metrics")
package metrics
