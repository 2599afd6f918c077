// Package metrics defines the Prometheus collectors used by the dashboard
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform. Each instance
// owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ActiveSessions       prometheus.Gauge
	SessionsOpenedTotal  *prometheus.CounterVec
	FilterOpsTotal       *prometheus.CounterVec
	FilterLatency        *prometheus.HistogramVec
	VisibleListings      prometheus.Histogram
	LoaderDuration       *prometheus.HistogramVec
	LoadedListings       prometheus.Gauge
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
	EventsDroppedTotal   prometheus.Counter
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_sessions_active",
				Help: "Number of open dashboard view sessions.",
			},
		),
		SessionsOpenedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_sessions_opened_total",
				Help: "Sessions opened, by load outcome (ok, load_error).",
			},
			[]string{"outcome"},
		),
		FilterOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facet_filter_operations_total",
				Help: "Filter mutations applied, by operation and dimension.",
			},
			[]string{"operation", "dimension"},
		),
		FilterLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "facet_filter_latency_seconds",
				Help:    "Time to apply a filter mutation and recompute the visible subset.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"operation"},
		),
		VisibleListings: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "facet_visible_listings",
				Help:    "Size of the visible subset after each mutation.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		LoaderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "listing_loader_duration_seconds",
				Help:    "Listing collection load latency by source and outcome.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"source", "outcome"},
		),
		LoadedListings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "listing_loader_last_collection_size",
				Help: "Number of listings returned by the most recent successful load.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "listing_cache_hits_total",
				Help: "Total number of listing cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "listing_cache_misses_total",
				Help: "Total number of listing cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		EventsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_events_dropped_total",
				Help: "Filter analytics events dropped because the buffer was full.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ActiveSessions,
		m.SessionsOpenedTotal,
		m.FilterOpsTotal,
		m.FilterLatency,
		m.VisibleListings,
		m.LoaderDuration,
		m.LoadedListings,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
		m.EventsDroppedTotal,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
