package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/custodian/pkg/records"
)

// HoldMetrics tracks legal holds in force.
type HoldMetrics struct {
	active *prometheus.GaugeVec
}

// NewHoldMetrics creates and registers hold metrics.
func NewHoldMetrics(namespace string, registry *prometheus.Registry) *HoldMetrics {
	hm := &HoldMetrics{
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "legal_hold",
				Name:      "active",
				Help:      "Legal holds currently in force by entity type",
			},
			[]string{"entity_type"},
		),
	}
	registry.MustRegister(hm.active)
	return hm
}

// Set replaces the gauge with counts from holds.
func (hm *HoldMetrics) Set(holds []*records.LegalHold) {
	counts := make(map[records.EntityType]int, len(records.GovernedTypes))
	for _, t := range records.GovernedTypes {
		counts[t] = 0
	}
	for _, h := range holds {
		counts[h.EntityType]++
	}

	hm.active.Reset()
	for t, n := range counts {
		hm.active.WithLabelValues(string(t)).Set(float64(n))
	}
}
