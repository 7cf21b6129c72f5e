// Package metrics provides Prometheus metrics for the posture service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  prometheus.Registerer

	// Ingestion metrics
	samplesIngested    prometheus.Counter
	transitions        *prometheus.CounterVec
	ingestionRejected  prometheus.Counter
	captureFailures    prometheus.Counter
	predictionFailures prometheus.Counter
	currentProbability prometheus.Gauge

	// Store metrics
	storeAppendLatency *prometheus.HistogramVec
	storeQueryLatency  *prometheus.HistogramVec
	storeRecords       *prometheus.GaugeVec
	storeErrors        prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "ribs",
		subsystem: "posture",
		buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.Opts {
		return prometheus.Opts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}

	m.samplesIngested = prometheus.NewCounter(prometheus.CounterOpts(
		factory("samples_ingested_total", "Total posture samples written to the store")))
	m.transitions = prometheus.NewCounterVec(prometheus.CounterOpts(
		factory("transitions_total", "Total posture transition events by type")), []string{"type"})
	m.ingestionRejected = prometheus.NewCounter(prometheus.CounterOpts(
		factory("ingestion_rejected_total", "Samples rejected at the ingestion boundary")))
	m.captureFailures = prometheus.NewCounter(prometheus.CounterOpts(
		factory("capture_failures_total", "Frame capture attempts that produced no frame")))
	m.predictionFailures = prometheus.NewCounter(prometheus.CounterOpts(
		factory("prediction_failures_total", "Predictions that produced no probability")))
	m.currentProbability = prometheus.NewGauge(prometheus.GaugeOpts(
		factory("current_slouch_probability", "Most recently ingested slouch probability")))

	m.storeAppendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_append_latency_ms",
		Help:      "Store append latency in milliseconds",
		Buckets:   m.buckets,
	}, []string{"collection"})
	m.storeQueryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_ms",
		Help:      "Store query latency in milliseconds",
		Buckets:   m.buckets,
	}, []string{"collection"})
	m.storeRecords = prometheus.NewGaugeVec(prometheus.GaugeOpts(
		factory("store_records", "Record count per collection")), []string{"collection"})
	m.storeErrors = prometheus.NewCounter(prometheus.CounterOpts(
		factory("store_errors_total", "Store operations that failed")))

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts(
		factory("http_requests_total", "HTTP requests by endpoint, method and status")),
		[]string{"endpoint", "method", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.buckets,
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryUsage = prometheus.NewGauge(prometheus.GaugeOpts(
		factory("system_memory_bytes", "Allocated heap bytes")))
	m.systemGoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts(
		factory("system_goroutines", "Current goroutine count")))
	m.systemGCPauseTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_ms",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})

	m.registry.MustRegister(
		m.samplesIngested,
		m.transitions,
		m.ingestionRejected,
		m.captureFailures,
		m.predictionFailures,
		m.currentProbability,
		m.storeAppendLatency,
		m.storeQueryLatency,
		m.storeRecords,
		m.storeErrors,
		m.httpRequests,
		m.httpRequestDuration,
		m.systemMemoryUsage,
		m.systemGoroutineCount,
		m.systemGCPauseTime,
	)
}

// RecordSampleIngested increments the ingested sample counter and
// tracks the latest probability.
func RecordSampleIngested(probability float64) {
	globalManager.samplesIngested.Inc()
	globalManager.currentProbability.Set(probability)
}

// RecordTransition increments the transition counter for an event type.
func RecordTransition(eventType string) {
	globalManager.transitions.WithLabelValues(eventType).Inc()
}

// RecordIngestionRejected counts a sample rejected before any write.
func RecordIngestionRejected() {
	globalManager.ingestionRejected.Inc()
}

// RecordCaptureFailure counts a capture attempt that yielded no frame.
func RecordCaptureFailure() {
	globalManager.captureFailures.Inc()
}

// RecordPredictionFailure counts a prediction that yielded no result.
func RecordPredictionFailure() {
	globalManager.predictionFailures.Inc()
}

// RecordStoreAppendLatency records an append round-trip.
func RecordStoreAppendLatency(collection string, latencyMs float64) {
	globalManager.storeAppendLatency.WithLabelValues(collection).Observe(latencyMs)
}

// RecordStoreQueryLatency records a query round-trip.
func RecordStoreQueryLatency(collection string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(collection).Observe(latencyMs)
}

// UpdateStoreRecords sets the record-count gauge for a collection.
func UpdateStoreRecords(collection string, count int) {
	globalManager.storeRecords.WithLabelValues(collection).Set(float64(count))
}

// RecordStoreError counts a failed store operation.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// RecordHTTPRequest counts one handled request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records a request duration.
func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the allocated-bytes gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause observation.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry exposes the custom registry for the /healthz exposition
// handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
