package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks compliance evaluation.
type Metrics struct {
	Evaluations     *prometheus.CounterVec
	AmbiguousTiers  prometheus.Counter
	ComputeDuration prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientpulse_compliance_evaluations_total",
			Help: "Client-year compliance evaluations by overall status",
		}, []string{"status"}),
		AmbiguousTiers: f.NewCounter(prometheus.CounterOpts{
			Name: "clientpulse_compliance_ambiguous_segment_total",
			Help: "Evaluations where several segment assignments intersected the year",
		}),
		ComputeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clientpulse_compliance_compute_duration_seconds",
			Help:    "Duration of a compliance computation for one refresh scope",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncrementEvaluation(status string) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementAmbiguousTier() {
	if m == nil {
		return
	}
	m.AmbiguousTiers.Inc()
}

// ObserveCompute records the duration since start.
func (m *Metrics) ObserveCompute(start time.Time) {
	if m == nil {
		return
	}
	m.ComputeDuration.Observe(time.Since(start).Seconds())
}
