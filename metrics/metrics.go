// Package metrics provides Prometheus metrics for the Atlassian MCP server.
// It tracks tool calls, backend API latency, cache performance, and error rates.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "atlassian_mcp"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures request latency distribution
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Request latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing requests
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of requests currently being processed",
	}, []string{"tool"})

	// ValidationFailures counts tool calls rejected before reaching a backend
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "validation_failures_total",
		Help:      "Tool calls rejected by argument validation",
	}, []string{"tool"})

	// ArgumentClamps counts numeric arguments lowered to their declared maximum
	ArgumentClamps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "argument_clamps_total",
		Help:      "Numeric tool arguments clamped to their maximum",
	}, []string{"tool", "argument"})

	// ResourceReads counts resource reads by scheme, kind and status
	ResourceReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "resource_reads_total",
		Help:      "Resource reads by scheme, kind and status",
	}, []string{"scheme", "kind", "status"})

	// CacheHits counts cache hits
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_hits_total",
		Help:      "Total cache hit count",
	})

	// CacheMisses counts cache misses
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_misses_total",
		Help:      "Total cache miss count",
	})

	// CacheSize tracks current cache entry count
	CacheSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "cache_entries",
		Help:      "Current number of cache entries",
	}, []string{"backend"})

	// BackendAPILatency measures Atlassian API call latency by backend and action
	BackendAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "backend_api_latency_seconds",
		Help:      "Atlassian API call latency by backend and action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend", "action"})

	// BackendAPIRequestsTotal counts Atlassian API requests
	BackendAPIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "backend_api_requests_total",
		Help:      "Total Atlassian API requests by backend, action and status",
	}, []string{"backend", "action", "status"})

	// BackendAPIErrors counts Atlassian API errors by HTTP status
	BackendAPIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "backend_api_errors_total",
		Help:      "Atlassian API errors by backend, action and error code",
	}, []string{"backend", "action", "error_code"})

	// BackendAPIRetries counts API request retries
	BackendAPIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "backend_api_retries_total",
		Help:      "Atlassian API retry count by backend and action",
	}, []string{"backend", "action"})

	// DedupShared counts GET requests answered by another caller's in-flight request
	DedupShared = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "dedup_shared_total",
		Help:      "GET requests served from a coalesced in-flight request",
	}, []string{"backend"})

	// RateLimitRejections counts requests rejected due to rate limiting
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected due to rate limiting",
	})

	// RateLimitWaits counts requests that had to wait for a concurrency slot
	RateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_waits_total",
		Help:      "Requests that waited for the backend concurrency semaphore",
	}, []string{"backend"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})

	// HTTPRequestsTotal counts HTTP transport requests
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	// HTTPRequestDuration measures HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency distribution",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "route"})

	// WriteOperations counts Jira write operations by type
	WriteOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "write_operations_total",
		Help:      "Write operations by type and status",
	}, []string{"operation", "status"})

	// ContentSize tracks content sizes produced by normalization
	ContentSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "content_size_bytes",
		Help:      "Normalized content size distribution in bytes",
		Buckets:   []float64{100, 1000, 10000, 50000, 100000, 250000, 500000, 1000000},
	}, []string{"operation"})

	// DateParseFailures counts Jira timestamps kept raw because they did not parse
	DateParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "date_parse_failures_total",
		Help:      "Timestamps that could not be normalized to a calendar date",
	})
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordRequest records a completed request with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	RequestsTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordAPICall records an Atlassian API call
func RecordAPICall(backend, action string, duration float64, success bool, errorCode string) {
	BackendAPIRequestsTotal.WithLabelValues(backend, action, statusLabel(success)).Inc()
	BackendAPILatency.WithLabelValues(backend, action).Observe(duration)
	if errorCode != "" {
		BackendAPIErrors.WithLabelValues(backend, action, errorCode).Inc()
	}
}

// RecordWrite records a create operation against Jira
func RecordWrite(operation string, success bool) {
	WriteOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// RecordResourceRead records a resource read
func RecordResourceRead(scheme, kind string, success bool) {
	ResourceReads.WithLabelValues(scheme, kind, statusLabel(success)).Inc()
}

// RecordCacheAccess records a cache hit or miss
func RecordCacheAccess(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

// SetCacheSize updates the current cache size gauge
func SetCacheSize(backend string, size int) {
	CacheSize.WithLabelValues(backend).Set(float64(size))
}
