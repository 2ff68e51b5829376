package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/policy/manager"
	"mercator-hq/custodian/pkg/records"
	"mercator-hq/custodian/pkg/retention"
)

// HoldLister lists the holds currently in force.
type HoldLister interface {
	ActiveHolds(ctx context.Context) ([]*records.LegalHold, error)
}

// Collector owns the Prometheus registry and every Custodian metric. It
// implements retention.Observer and supplies callbacks for the audit
// recorder and the policy manager.
type Collector struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	sweep    *SweepMetrics
	schedule *ScheduleMetrics
	holds    *HoldMetrics
	policy   *PolicyMetrics
	audit    *AuditMetrics
}

var _ retention.Observer = (*Collector)(nil)

// NewCollector creates a collector registering its metrics with registry.
// A nil registry gets a fresh one.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	executor := retention.NewExecutor(store, builder, holds, policies,
//		retention.WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := config.DefaultMetricsNamespace
	if cfg != nil && cfg.Namespace != "" {
		namespace = cfg.Namespace
	}

	return &Collector{
		registry: registry,
		logger:   slog.Default().With("component", "telemetry.metrics"),
		sweep:    NewSweepMetrics(namespace, registry),
		schedule: NewScheduleMetrics(namespace, registry),
		holds:    NewHoldMetrics(namespace, registry),
		policy:   NewPolicyMetrics(namespace, registry),
		audit:    NewAuditMetrics(namespace, registry),
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ScheduleBuilt records the shape of a freshly built schedule.
func (c *Collector) ScheduleBuilt(s *retention.Schedule) {
	c.schedule.Record(s)
}

// BatchCompleted records the outcome of a sweep.
func (c *Collector) BatchCompleted(r *retention.BatchResult) {
	c.sweep.Record(r)
}

// PolicyReloaded records a policy load attempt. It has the
// manager.ReloadHook signature.
func (c *Collector) PolicyReloaded(r manager.ReloadResult) {
	c.policy.Record(r)
}

// AuditFailure counts an audit event that could not be written. It has the
// recorder.FailureFunc signature.
func (c *Collector) AuditFailure(event *audit.Event, err error) {
	c.audit.RecordFailure(event)
}

// RefreshHolds sets the active hold gauges from src.
func (c *Collector) RefreshHolds(ctx context.Context, src HoldLister) error {
	holds, err := src.ActiveHolds(ctx)
	if err != nil {
		c.logger.Warn("failed to refresh legal hold metrics", "error", err)
		return err
	}
	c.holds.Set(holds)
	return nil
}
