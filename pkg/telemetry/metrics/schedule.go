package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/custodian/pkg/retention"
)

// ScheduleMetrics describes the most recently built retention schedule.
type ScheduleMetrics struct {
	entries     *prometheus.GaugeVec
	expired     prometheus.Gauge
	held        prometheus.Gauge
	fetchErrors prometheus.Counter
	builds      prometheus.Counter
}

// NewScheduleMetrics creates and registers schedule metrics.
func NewScheduleMetrics(namespace string, registry *prometheus.Registry) *ScheduleMetrics {
	sm := &ScheduleMetrics{
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "schedule",
				Name:      "entries",
				Help:      "Schedule entries by required action in the last build",
			},
			[]string{"action"},
		),
		expired: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "schedule",
				Name:      "expired_entries",
				Help:      "Expired entries in the last build",
			},
		),
		held: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "schedule",
				Name:      "held_entries",
				Help:      "Entries on legal hold in the last build",
			},
		),
		fetchErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "schedule",
				Name:      "fetch_errors_total",
				Help:      "Total number of record fetch failures while building schedules",
			},
		),
		builds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "schedule",
				Name:      "builds_total",
				Help:      "Total number of schedule builds",
			},
		),
	}

	registry.MustRegister(sm.entries, sm.expired, sm.held, sm.fetchErrors, sm.builds)
	return sm
}

// Record replaces the gauges with the counts from s.
func (sm *ScheduleMetrics) Record(s *retention.Schedule) {
	if s == nil {
		return
	}
	sm.builds.Inc()
	sm.fetchErrors.Add(float64(len(s.Errors)))

	// Reset so actions absent from this build drop to zero.
	sm.entries.Reset()
	for action, n := range s.CountByAction() {
		sm.entries.WithLabelValues(action).Set(float64(n))
	}

	var expired, held int
	for _, e := range s.Entries {
		if e.IsExpired {
			expired++
		}
		if e.IsOnLegalHold {
			held++
		}
	}
	sm.expired.Set(float64(expired))
	sm.held.Set(float64(held))
}
