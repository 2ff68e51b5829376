package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/custodian/pkg/audit"
)

// AuditMetrics tracks audit events that were lost.
type AuditMetrics struct {
	failures *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics.
func NewAuditMetrics(namespace string, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "failures_total",
				Help:      "Total number of audit events that could not be written",
			},
			[]string{"action"},
		),
	}
	registry.MustRegister(am.failures)
	return am
}

// RecordFailure counts one lost event.
func (am *AuditMetrics) RecordFailure(event *audit.Event) {
	action := "unknown"
	if event != nil && event.Action != "" {
		action = string(event.Action)
	}
	am.failures.WithLabelValues(action).Inc()
}
