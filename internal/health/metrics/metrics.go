package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks health scoring and reads.
type Metrics struct {
	Scores         *prometheus.CounterVec
	MissingSignals *prometheus.CounterVec
	TotalScore     prometheus.Histogram
	StaleReads     prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Scores: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientpulse_health_scores_total",
			Help: "Health snapshots scored, by status and formula version",
		}, []string{"status", "formula_version"}),
		MissingSignals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientpulse_health_missing_signals_total",
			Help: "Snapshots scored with a signal defaulted because it was missing",
		}, []string{"signal"}),
		TotalScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clientpulse_health_total_score",
			Help:    "Distribution of health total scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		StaleReads: f.NewCounter(prometheus.CounterOpts{
			Name: "clientpulse_health_stale_reads_total",
			Help: "Reads that asked for data newer than the last completed refresh",
		}),
	}
}

func (m *Metrics) ObserveScore(status, version string, total int) {
	if m == nil {
		return
	}
	m.Scores.WithLabelValues(status, version).Inc()
	m.TotalScore.Observe(float64(total))
}

func (m *Metrics) IncrementMissingSignal(signal string) {
	if m == nil {
		return
	}
	m.MissingSignals.WithLabelValues(signal).Inc()
}

func (m *Metrics) IncrementStaleRead() {
	if m == nil {
		return
	}
	m.StaleReads.Inc()
}
