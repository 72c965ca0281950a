package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage label values.
const (
	StageExtract   = "extract"
	StageNormalize = "normalize"
	StageMerge     = "merge"
	StageScore     = "score"
	StageGate      = "gate"
)

var knownStages = map[string]struct{}{ //nolint:gochecknoglobals // read-only lookup
	StageExtract: {}, StageNormalize: {}, StageMerge: {}, StageScore: {}, StageGate: {},
}

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline
	pipelineRuns       *prometheus.CounterVec
	itemsProcessed     prometheus.Counter
	candidatesFound    *prometheus.CounterVec
	entitiesMerged     prometheus.Counter
	decisions          *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	riskScores         prometheus.Histogram
	publishedProfiles  prometheus.Gauge
	duplicateRunsTotal prometheus.Counter
	storeLatency       *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Reddit fetcher
	fetchRetries prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "orgwatch",
		subsystem:        "vetting",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.pipelineRuns = m.counterVec("pipeline_runs_total", "Pipeline runs by mode (sync, async, batch) and status", "mode", "status")
	m.itemsProcessed = m.counter("items_processed_total", "Raw items handed to the extractor")
	m.candidatesFound = m.counterVec("candidates_total", "Candidates extracted by type hint", "type_hint")
	m.entitiesMerged = m.counter("entities_total", "Entities remaining after the merge pass")
	m.decisions = m.counterVec("decisions_total", "Publication decisions by state", "state")
	m.stageDuration = m.histogramVec("stage_duration_milliseconds", "Duration of each pipeline stage in milliseconds", "stage")
	m.riskScores = m.histogram("risk_score", "Distribution of computed risk scores", []float64{10, 20, 30, 40, 55, 70, 85, 100})
	m.publishedProfiles = m.gauge("published_profiles", "Profiles currently held by the profile store")
	m.duplicateRunsTotal = m.counter("duplicate_runs_total", "Async submissions rejected as duplicate run ids")
	m.storeLatency = m.histogramVec("store_operation_latency_milliseconds", "Profile and run store operation latency in milliseconds", "store", "operation")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpRateLimited = m.counterVec("http_rate_limited_total", "Requests rejected by the rate limiter", "endpoint")

	m.queueSize = m.gauge("queue_size", "Current size of the run queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum run queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of runs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of runs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")
	m.workerCount = m.gauge("worker_count", "Number of running workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of failed async runs")

	m.fetchRetries = m.counter("fetch_retries_total", "Retried listing fetches")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordPipelineRun counts a finished pipeline run.
func RecordPipelineRun(mode, status string) {
	globalManager.pipelineRuns.WithLabelValues(mode, status).Inc()
}

// RecordItems adds to the processed item counter.
func RecordItems(n int) {
	globalManager.itemsProcessed.Add(float64(n))
}

// RecordCandidate counts one extracted candidate.
func RecordCandidate(typeHint string) {
	globalManager.candidatesFound.WithLabelValues(typeHint).Inc()
}

// RecordEntities adds to the merged entity counter.
func RecordEntities(n int) {
	globalManager.entitiesMerged.Add(float64(n))
}

// RecordDecision counts one gate decision and its score.
func RecordDecision(state string, score int) {
	globalManager.decisions.WithLabelValues(state).Inc()
	globalManager.riskScores.Observe(float64(score))
}

// RecordStageDuration observes a stage duration in milliseconds.
func RecordStageDuration(stage string, ms float64) error {
	if _, ok := knownStages[stage]; !ok {
		return ErrUnknownStage
	}
	globalManager.stageDuration.WithLabelValues(stage).Observe(ms)
	return nil
}

// UpdatePublishedProfiles sets the profile store size.
func UpdatePublishedProfiles(n int) {
	globalManager.publishedProfiles.Set(float64(n))
}

// RecordStoreLatency observes one store operation.
func RecordStoreLatency(store, operation string, ms float64) {
	globalManager.storeLatency.WithLabelValues(store, operation).Observe(ms)
}

// RecordDuplicateRun counts a rejected duplicate submission.
func RecordDuplicateRun() {
	globalManager.duplicateRunsTotal.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	globalManager.httpRateLimited.WithLabelValues(endpoint).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordFetchRetry counts one retried listing fetch.
func RecordFetchRetry() {
	globalManager.fetchRetries.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemStats samples heap usage and goroutine count.
func UpdateSystemStats() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapInuse))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
