package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/custodian/pkg/policy/manager"
)

// PolicyMetrics tracks retention policy loading.
//
// Metrics:
//   - custodian_policy_reloads_total: Load attempts by status
//   - custodian_policy_reload_duration_seconds: Load duration
//   - custodian_policy_loaded: Policies in the active set
type PolicyMetrics struct {
	reloadsTotal   *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	loaded         prometheus.Gauge
}

// NewPolicyMetrics creates and registers policy metrics with the provided registry.
func NewPolicyMetrics(namespace string, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "reloads_total",
				Help:      "Total number of policy load attempts",
			},
			[]string{"status"},
		),

		reloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "reload_duration_seconds",
				Help:      "Duration of policy loads in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to 4s
			},
		),

		loaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "loaded",
				Help:      "Number of retention policies in the active set",
			},
		),
	}

	registry.MustRegister(
		pm.reloadsTotal,
		pm.reloadDuration,
		pm.loaded,
	)

	return pm
}

// Record records a load attempt. A failed load leaves the loaded gauge
// untouched since the previous set stays active.
func (pm *PolicyMetrics) Record(r manager.ReloadResult) {
	pm.reloadDuration.Observe(r.Duration.Seconds())
	if r.Err != nil {
		pm.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	pm.reloadsTotal.WithLabelValues("success").Inc()
	pm.loaded.Set(float64(r.Count))
}
