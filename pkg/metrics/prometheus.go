// Package metrics provides Prometheus metrics for the winstate leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the winstate service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	metricPrefix     string
	registry         prometheus.Registerer

	// Leaderboard business metrics
	resultsRecorded  prometheus.Counter
	resultsDuplicate prometheus.Counter
	resultsRejected  prometheus.Counter
	queriesServed    prometheus.Counter
	queriesNotFound  prometheus.Counter

	// Store state
	resultsTotal prometheus.Gauge
	gamesTotal   prometheus.Gauge
	dedupeSize   prometheus.Gauge

	// Store latency by backend
	storeWriteLatency *prometheus.HistogramVec
	storeQueryLatency *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "winstate",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.resultsRecorded = auto.NewCounter(m.counterOpts("results_recorded_total",
		"Total number of results durably recorded"))
	m.resultsDuplicate = auto.NewCounter(m.counterOpts("results_duplicate_total",
		"Total number of submissions answered from the idempotency cache"))
	m.resultsRejected = auto.NewCounter(m.counterOpts("results_rejected_total",
		"Total number of submissions rejected as invalid"))
	m.queriesServed = auto.NewCounter(m.counterOpts("queries_total",
		"Total number of leaderboard queries answered"))
	m.queriesNotFound = auto.NewCounter(m.counterOpts("queries_not_found_total",
		"Total number of leaderboard queries for games without results"))

	m.resultsTotal = auto.NewGauge(m.gaugeOpts("results",
		"Number of results held by the store"))
	m.gamesTotal = auto.NewGauge(m.gaugeOpts("games",
		"Number of games with at least one result (when the store can tell)"))
	m.dedupeSize = auto.NewGauge(m.gaugeOpts("dedupe_keys",
		"Number of idempotency keys currently remembered"))

	m.storeWriteLatency = auto.NewHistogramVec(m.histogramOpts("store_write_latency_milliseconds",
		"Store write latency in milliseconds"), []string{"backend"})
	m.storeQueryLatency = auto.NewHistogramVec(m.histogramOpts("store_query_latency_milliseconds",
		"Store ranked query latency in milliseconds"), []string{"backend"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Total number of errors by component and error type"),
		[]string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Total number of errors by error type and severity"),
		[]string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Total number of errors by HTTP endpoint"),
		[]string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds",
		"Latency of operations that resulted in errors"),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes",
		"Current memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count",
		"Current number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"Average GC pause time in milliseconds"))
}

// RecordResultRecorded increments the recorded results counter.
func RecordResultRecorded() {
	if globalManager.enabled {
		globalManager.resultsRecorded.Inc()
	}
}

// RecordResultDuplicate increments the duplicate submissions counter.
func RecordResultDuplicate() {
	if globalManager.enabled {
		globalManager.resultsDuplicate.Inc()
	}
}

// RecordResultRejected increments the rejected submissions counter.
func RecordResultRejected() {
	if globalManager.enabled {
		globalManager.resultsRejected.Inc()
	}
}

// RecordQueryServed increments the answered queries counter.
func RecordQueryServed() {
	if globalManager.enabled {
		globalManager.queriesServed.Inc()
	}
}

// RecordQueryNotFound increments the unknown game queries counter.
func RecordQueryNotFound() {
	if globalManager.enabled {
		globalManager.queriesNotFound.Inc()
	}
}

// UpdateResultsTotal sets the number of stored results.
func UpdateResultsTotal(count int) {
	if globalManager.enabled {
		globalManager.resultsTotal.Set(float64(count))
	}
}

// UpdateGamesTotal sets the number of known games.
func UpdateGamesTotal(count int) {
	if globalManager.enabled {
		globalManager.gamesTotal.Set(float64(count))
	}
}

// UpdateDedupeSize sets the number of remembered idempotency keys.
func UpdateDedupeSize(size int64) {
	if globalManager.enabled {
		globalManager.dedupeSize.Set(float64(size))
	}
}

// RecordStoreWriteLatency records a store write latency for backend.
func RecordStoreWriteLatency(backend string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeWriteLatency.WithLabelValues(backend).Observe(latencyMs)
	}
}

// RecordStoreQueryLatency records a store query latency for backend.
func RecordStoreQueryLatency(backend string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeQueryLatency.WithLabelValues(backend).Observe(latencyMs)
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
