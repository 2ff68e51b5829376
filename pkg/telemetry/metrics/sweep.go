package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/custodian/pkg/retention"
)

// SweepMetrics tracks retention sweeps.
//
// Metrics:
//   - custodian_retention_sweeps_total: Sweeps by dry_run and status
//   - custodian_retention_items_total: Processed entries by outcome and dry_run
//   - custodian_retention_sweep_errors_total: Errors reported by sweeps
//   - custodian_retention_sweep_duration_seconds: Sweep duration
//   - custodian_retention_last_sweep_timestamp_seconds: Start time of the last sweep
type SweepMetrics struct {
	sweepsTotal   *prometheus.CounterVec
	itemsTotal    *prometheus.CounterVec
	errorsTotal   prometheus.Counter
	duration      *prometheus.HistogramVec
	lastTimestamp prometheus.Gauge
}

// NewSweepMetrics creates and registers sweep metrics.
func NewSweepMetrics(namespace string, registry *prometheus.Registry) *SweepMetrics {
	sm := &SweepMetrics{
		sweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "sweeps_total",
				Help:      "Total number of retention sweeps",
			},
			[]string{"dry_run", "status"},
		),

		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "items_total",
				Help:      "Total number of schedule entries processed by outcome",
			},
			[]string{"outcome", "dry_run"},
		),

		errorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "sweep_errors_total",
				Help:      "Total number of errors reported by retention sweeps",
			},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "sweep_duration_seconds",
				Help:      "Duration of retention sweeps in seconds",
				// Sweeps range from milliseconds to tens of minutes
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"dry_run"},
		),

		lastTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "last_sweep_timestamp_seconds",
				Help:      "Unix time the last retention sweep started",
			},
		),
	}

	registry.MustRegister(
		sm.sweepsTotal,
		sm.itemsTotal,
		sm.errorsTotal,
		sm.duration,
		sm.lastTimestamp,
	)

	return sm
}

// Record records one completed sweep.
func (sm *SweepMetrics) Record(r *retention.BatchResult) {
	if r == nil {
		return
	}
	dryRun := strconv.FormatBool(r.DryRun)

	status := "ok"
	if len(r.Errors) > 0 {
		status = "errors"
	}
	sm.sweepsTotal.WithLabelValues(dryRun, status).Inc()

	for _, item := range r.Items {
		sm.itemsTotal.WithLabelValues(string(item.Outcome), dryRun).Inc()
	}

	sm.errorsTotal.Add(float64(len(r.Errors)))
	sm.duration.WithLabelValues(dryRun).Observe(r.Duration.Seconds())
	sm.lastTimestamp.Set(float64(r.StartedAt.Unix()))
}
