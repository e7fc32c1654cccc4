package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks refresh passes and their side channels.
type Metrics struct {
	Passes          *prometheus.CounterVec
	PassDuration    *prometheus.HistogramVec
	Generation      prometheus.Gauge
	Coalesced       prometheus.Counter
	LockContended   prometheus.Counter
	LockLost        prometheus.Counter
	DirtyDrained    prometheus.Counter
	EventsPublished prometheus.Counter
	EventsDropped   *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Passes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientpulse_refresh_passes_total",
			Help: "Refresh passes by scope and result",
		}, []string{"scope", "result"}),
		PassDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clientpulse_refresh_pass_duration_seconds",
			Help:    "Wall time of a refresh pass from lock to swap",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"scope"}),
		Generation: f.NewGauge(prometheus.GaugeOpts{
			Name: "clientpulse_refresh_generation",
			Help: "Generation of the published view",
		}),
		Coalesced: f.NewCounter(prometheus.CounterOpts{
			Name: "clientpulse_refresh_coalesced_total",
			Help: "Refresh requests served by a pass already in flight",
		}),
		LockContended: f.NewCounter(prometheus.CounterOpts{
			Name: "clientpulse_refresh_lock_contended_total",
			Help: "Attempts to take the writer lock that found it held",
		}),
		LockLost: f.NewCounter(prometheus.CounterOpts{
			Name: "clientpulse_refresh_lock_lost_total",
			Help: "Passes abandoned because the writer lock expired before they finished",
		}),
		DirtyDrained: f.NewCounter(prometheus.CounterOpts{
			Name: "clientpulse_refresh_dirty_drained_total",
			Help: "Clients taken from the dirty set for targeted refresh",
		}),
		EventsPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "clientpulse_refresh_events_published_total",
			Help: "Health refreshed events produced",
		}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientpulse_refresh_events_dropped_total",
			Help: "Health refreshed events not produced",
		}, []string{"reason"}),
	}
}

// ObservePass records a finished pass. result is "success" or "failure".
func (m *Metrics) ObservePass(scope, result string, start time.Time) {
	if m == nil {
		return
	}
	m.Passes.WithLabelValues(scope, result).Inc()
	m.PassDuration.WithLabelValues(scope).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetGeneration(gen int64) {
	if m == nil {
		return
	}
	m.Generation.Set(float64(gen))
}

func (m *Metrics) IncrementCoalesced() {
	if m == nil {
		return
	}
	m.Coalesced.Inc()
}

func (m *Metrics) IncrementLockContended() {
	if m == nil {
		return
	}
	m.LockContended.Inc()
}

func (m *Metrics) IncrementLockLost() {
	if m == nil {
		return
	}
	m.LockLost.Inc()
}

func (m *Metrics) AddDirtyDrained(n int) {
	if m == nil {
		return
	}
	m.DirtyDrained.Add(float64(n))
}

func (m *Metrics) IncrementPublished() {
	if m == nil {
		return
	}
	m.EventsPublished.Inc()
}

func (m *Metrics) IncrementDropped(reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(reason).Inc()
}
