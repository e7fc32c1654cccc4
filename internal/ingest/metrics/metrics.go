package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks rows crossing the ingestion boundary.
type Metrics struct {
	Rows       *prometheus.CounterVec
	Rejections *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientpulse_ingest_rows_total",
			Help: "Ingested rows by feed and outcome",
		}, []string{"feed", "outcome"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientpulse_ingest_rejections_total",
			Help: "Rejected rows by feed and error code",
		}, []string{"feed", "code"}),
	}
}

func (m *Metrics) IncrementAccepted(feed string) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(feed, "accepted").Inc()
}

func (m *Metrics) IncrementRejected(feed, code string) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(feed, "rejected").Inc()
	m.Rejections.WithLabelValues(feed, code).Inc()
}
