package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPResponseSize      prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Database metrics
	DatabaseQueryDuration prometheus.HistogramVec
	DatabaseQueriesTotal  prometheus.CounterVec

	// Redis metrics
	RedisOperationDuration prometheus.HistogramVec
	RedisOperationsTotal   prometheus.CounterVec

	// Feed pagination metrics
	FeedFetchDuration   prometheus.HistogramVec
	FeedRounds          prometheus.HistogramVec
	FeedScanned         prometheus.HistogramVec
	FeedSafeguardsTotal prometheus.CounterVec
	FeedErrorsTotal     prometheus.CounterVec

	// Upstream (Migu) metrics
	UpstreamRequestsTotal   prometheus.CounterVec
	UpstreamRequestDuration prometheus.HistogramVec
	CircuitBreakerState     prometheus.GaugeVec

	// Domain events
	VideoEventsTotal  prometheus.CounterVec
	ReportAlertsTotal prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			DatabaseQueryDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "database_query_duration_seconds",
					Help:    "Database query latency in seconds",
					Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"query_type", "table"},
			),
			DatabaseQueriesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "database_queries_total",
					Help: "Total number of database queries",
				},
				[]string{"query_type", "table", "status"},
			),

			RedisOperationDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "redis_operation_duration_seconds",
					Help:    "Redis operation latency in seconds",
					Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
				},
				[]string{"operation"},
			),
			RedisOperationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "redis_operations_total",
					Help: "Total number of Redis operations",
				},
				[]string{"operation", "status"},
			),

			FeedFetchDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_fetch_duration_seconds",
					Help:    "Time to assemble one feed page in seconds",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"feed", "mode"},
			),
			FeedRounds: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_fetch_rounds",
					Help:    "Query rounds needed to fill one feed page",
					Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32, 64},
				},
				[]string{"feed"},
			),
			FeedScanned: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_fetch_scanned_candidates",
					Help:    "Candidates scanned to fill one feed page",
					Buckets: prometheus.ExponentialBuckets(1, 2, 12),
				},
				[]string{"feed"},
			),
			FeedSafeguardsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feed_safeguard_trips_total",
					Help: "Feed fetches stopped early by a backfill cap",
				},
				[]string{"feed", "safeguard"},
			),
			FeedErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feed_errors_total",
					Help: "Feed fetches aborted by a source or repository failure",
				},
				[]string{"feed", "stage"},
			),

			UpstreamRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "upstream_requests_total",
					Help: "Total requests to partner platforms",
				},
				[]string{"service", "operation", "status"},
			),
			UpstreamRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "upstream_request_duration_seconds",
					Help:    "Partner platform request latency in seconds",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"service", "operation"},
			),
			CircuitBreakerState: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "circuit_breaker_state",
					Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
				},
				[]string{"name"},
			),

			VideoEventsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "video_events_total",
					Help: "Video interactions by type",
				},
				[]string{"event"},
			),
			ReportAlertsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "report_alerts_total",
					Help: "SMS alerts queued for heavily reported videos",
				},
				[]string{"status"},
			),

			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
