package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the Prometheus collectors used by the service.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	resolutionsTotal *prometheus.CounterVec
	refreshTotal     *prometheus.CounterVec
	refreshRecords   *prometheus.CounterVec
	indexSize        prometheus.Gauge
}

// New builds a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "faqbot",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "faqbot",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "faqbot",
				Subsystem: "faq",
				Name:      "resolutions_total",
				Help:      "FAQ resolution outcomes by match method.",
			},
			[]string{"method"},
		),
		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "faqbot",
				Subsystem: "faq",
				Name:      "index_refresh_total",
				Help:      "Index refresh attempts by result.",
			},
			[]string{"result"},
		),
		refreshRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "faqbot",
				Subsystem: "faq",
				Name:      "index_refresh_records_total",
				Help:      "Corpus records processed during refresh by outcome.",
			},
			[]string{"outcome"},
		),
		indexSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "faqbot",
				Subsystem: "faq",
				Name:      "index_records",
				Help:      "Records in the current index generation.",
			},
		),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.resolutionsTotal,
		m.refreshTotal,
		m.refreshRecords,
		m.indexSize,
	)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveResolution records a resolver outcome. Method is "semantic",
// "lexical" or "none".
func (m *Metrics) ObserveResolution(method string) {
	m.resolutionsTotal.WithLabelValues(method).Inc()
}

// ObserveRefresh records one index refresh attempt.
func (m *Metrics) ObserveRefresh(ok bool, indexed, skipped int) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.refreshTotal.WithLabelValues(result).Inc()
	if ok {
		m.refreshRecords.WithLabelValues("indexed").Add(float64(indexed))
		m.refreshRecords.WithLabelValues("skipped").Add(float64(skipped))
		m.indexSize.Set(float64(indexed))
	}
}
