// Package metrics exposes export counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Export results
const (
	ResultOK            = "ok"
	ResultFetchError    = "fetch_error"
	ResultNotApplicable = "not_applicable"
	ResultBusy          = "busy"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry
	exports  *prometheus.CounterVec
	records  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coze",
			Name:      "exports_total",
			Help:      "Export attempts by source and result.",
		}, []string{"source", "result"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coze",
			Name:      "records_extracted_total",
			Help:      "Template records extracted from listing pages.",
		}, []string{"source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coze",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent loading and extracting a listing page.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
	}
	m.registry.MustRegister(m.exports, m.records, m.duration)
	return m
}

// ObserveExport records one export attempt
func (m *Metrics) ObserveExport(source, result string, records int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(source, result).Inc()
	if result == ResultOK {
		m.records.WithLabelValues(source).Add(float64(records))
		m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
