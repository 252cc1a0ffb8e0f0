package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query kinds.
const (
	KindIdu   = "idu"
	KindSiren = "siren"
)

// Query results.
const (
	ResultSuccess = "success"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Metrics provides observability for registry queries and the HTTP API.
type Metrics struct {
	// Registry queries by kind and result
	QueriesTotal *prometheus.CounterVec

	// Source retrieval latency by kind
	QueryDuration *prometheus.HistogramVec

	// Rows in the registry after ingestion, before views
	RowsFetched *prometheus.HistogramVec

	// Rendered results by format
	ExportsTotal *prometheus.CounterVec

	// HTTP traffic
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ppm_registry_queries_total",
			Help: "Total registry queries by identifier kind and result",
		}, []string{"kind", "result"}),

		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ppm_registry_query_duration_seconds",
			Help:    "Duration of registry population including source retrieval",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),

		RowsFetched: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ppm_registry_rows_fetched",
			Help:    "Rows held by the registry after population",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		}, []string{"kind"}),

		ExportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ppm_exports_total",
			Help: "Total search results rendered by format",
		}, []string{"format"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ppm_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ppm_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveQuery records one registry population.
func (m *Metrics) ObserveQuery(kind, result string, d time.Duration, rows int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(kind, result).Inc()
	if result == ResultSuccess {
		m.QueryDuration.WithLabelValues(kind).Observe(d.Seconds())
		m.RowsFetched.WithLabelValues(kind).Observe(float64(rows))
	}
}

// IncrementExport records a rendered result.
func (m *Metrics) IncrementExport(format string) {
	if m != nil {
		m.ExportsTotal.WithLabelValues(format).Inc()
	}
}

// ObserveRequest records a completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
