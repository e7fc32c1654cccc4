package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks name resolution outcomes and the operator queue.
type Metrics struct {
	Resolutions    *prometheus.CounterVec
	Unresolved     *prometheus.CounterVec
	FuzzyAmbiguous prometheus.Counter
	IndexRebuilds  prometheus.Counter
	IndexedNames   prometheus.Gauge
}

// New registers identity metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers identity metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientpulse_identity_resolutions_total",
			Help: "Successful name resolutions by matching step",
		}, []string{"step"}),
		Unresolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientpulse_identity_unresolved_total",
			Help: "Names recorded in the operator queue by source",
		}, []string{"source"}),
		FuzzyAmbiguous: f.NewCounter(prometheus.CounterOpts{
			Name: "clientpulse_identity_fuzzy_ambiguous_total",
			Help: "Batch resolutions rejected because the fuzzy step matched several clients",
		}),
		IndexRebuilds: f.NewCounter(prometheus.CounterOpts{
			Name: "clientpulse_identity_index_rebuilds_total",
			Help: "Resolver index rebuilds",
		}),
		IndexedNames: f.NewGauge(prometheus.GaugeOpts{
			Name: "clientpulse_identity_indexed_names",
			Help: "Canonical names plus active aliases in the resolver index",
		}),
	}
}

func (m *Metrics) IncrementResolution(step string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(step).Inc()
}

func (m *Metrics) IncrementUnresolved(source string) {
	if m == nil {
		return
	}
	m.Unresolved.WithLabelValues(source).Inc()
}

func (m *Metrics) IncrementFuzzyAmbiguous() {
	if m == nil {
		return
	}
	m.FuzzyAmbiguous.Inc()
}

// ObserveIndexRebuild records a rebuild and the resulting index size.
func (m *Metrics) ObserveIndexRebuild(size int) {
	if m == nil {
		return
	}
	m.IndexRebuilds.Inc()
	m.IndexedNames.Set(float64(size))
}
