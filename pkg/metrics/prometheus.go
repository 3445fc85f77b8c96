// Package metrics provides Prometheus metrics for the POI risk dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the dashboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	rowBuckets       []float64
	registry         prometheus.Registerer

	// Dataset Metrics - what was loaded at startup
	datasetRows         *prometheus.GaugeVec
	datasetLoadDuration prometheus.Gauge
	weekdayRecords      *prometheus.GaugeVec
	weekdayDropped      *prometheus.GaugeVec
	categoryCount       prometheus.Gauge
	staleCategories     prometheus.Gauge

	// View Metrics - per panel recomputation
	viewRenders        *prometheus.CounterVec
	viewRenderDuration *prometheus.HistogramVec
	viewRows           *prometheus.HistogramVec
	viewEmpty          *prometheus.CounterVec
	viewCacheHits      *prometheus.CounterVec
	viewCacheMisses    *prometheus.CounterVec
	chartRenderErrors  *prometheus.CounterVec

	// Warm-up Metrics - background prerendering into the view caches
	warmQueueSize    prometheus.Gauge
	warmQueueRejects *prometheus.CounterVec
	warmJobs         *prometheus.CounterVec
	warmWorkers      prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "poirisk",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		rowBuckets:       prometheus.ExponentialBuckets(1, 4, 8),
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.datasetRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dataset_rows",
		Help:      "Rows read from each source table",
	}, []string{"table"})

	m.datasetLoadDuration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dataset_load_duration_milliseconds",
		Help:      "Time spent reading both source tables",
	})

	m.weekdayRecords = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "weekday_records",
		Help:      "Complete joined records per weekday",
	}, []string{"weekday"})

	m.weekdayDropped = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "weekday_dropped_rows",
		Help:      "Matched risk rows dropped for missing fields per weekday",
	}, []string{"weekday"})

	m.categoryCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "categories",
		Help:      "Distinct categories offered in the selectors",
	})

	m.staleCategories = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stale_categories",
		Help:      "Categories present on some weekday but missing from the selectors",
	})

	m.viewRenders = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "view_renders_total",
		Help:      "View recomputations by panel",
	}, []string{"view"})

	m.viewRenderDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "view_render_duration_milliseconds",
		Help:      "Time to filter and build a view",
		Buckets:   m.histogramBuckets,
	}, []string{"view"})

	m.viewRows = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "view_rows",
		Help:      "Rows surviving the category filter",
		Buckets:   m.rowBuckets,
	}, []string{"view"})

	m.viewEmpty = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "view_empty_total",
		Help:      "Renders where no row matched the selection",
	}, []string{"view"})

	m.viewCacheHits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "view_cache_hits_total",
		Help:      "View cache hits by panel",
	}, []string{"view"})

	m.viewCacheMisses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "view_cache_misses_total",
		Help:      "View cache misses by panel",
	}, []string{"view"})

	m.chartRenderErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chart_render_errors_total",
		Help:      "Server-side chart image failures",
	}, []string{"view", "format"})

	m.warmQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "warm_queue_size",
		Help:      "Prerender jobs waiting in the queue",
	})

	m.warmQueueRejects = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "warm_queue_rejects_total",
		Help:      "Prerender jobs the queue refused",
	}, []string{"reason"})

	m.warmJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "warm_jobs_total",
		Help:      "Prerender jobs processed by view and result",
	}, []string{"view", "result"})

	m.warmWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "warm_workers",
		Help:      "Prerender workers running",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Errors by type and severity",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Errors by HTTP endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of failed operations",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Allocated heap bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current goroutine count",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Average GC pause in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// Dataset metrics.

// UpdateDatasetRows sets the row count read from table ("risk" or "poi").
func UpdateDatasetRows(table string, rows int) {
	globalManager.datasetRows.WithLabelValues(table).Set(float64(rows))
}

// RecordDatasetLoadDuration records how long loading took.
func RecordDatasetLoadDuration(ms float64) {
	globalManager.datasetLoadDuration.Set(ms)
}

// UpdateWeekdayRecords records the assembly result of one weekday.
func UpdateWeekdayRecords(weekday string, kept, dropped int) {
	globalManager.weekdayRecords.WithLabelValues(weekday).Set(float64(kept))
	globalManager.weekdayDropped.WithLabelValues(weekday).Set(float64(dropped))
}

// UpdateCategoryCount sets the selector category count and how many
// categories on other weekdays are missing from it.
func UpdateCategoryCount(count, stale int) {
	globalManager.categoryCount.Set(float64(count))
	globalManager.staleCategories.Set(float64(stale))
}

// View metrics.

// RecordViewRender records one recomputation of view.
func RecordViewRender(view string, rows int, durationMs float64) {
	globalManager.viewRenders.WithLabelValues(view).Inc()
	globalManager.viewRenderDuration.WithLabelValues(view).Observe(durationMs)
	globalManager.viewRows.WithLabelValues(view).Observe(float64(rows))
	if rows == 0 {
		globalManager.viewEmpty.WithLabelValues(view).Inc()
	}
}

// RecordViewCache records a cache lookup outcome.
func RecordViewCache(view string, hit bool) {
	if hit {
		globalManager.viewCacheHits.WithLabelValues(view).Inc()
		return
	}
	globalManager.viewCacheMisses.WithLabelValues(view).Inc()
}

// RecordChartRenderError records a failed chart image.
func RecordChartRenderError(view, format string) {
	globalManager.chartRenderErrors.WithLabelValues(view, format).Inc()
}

// Warm-up metrics.

// UpdateWarmQueueSize sets the number of queued prerender jobs.
func UpdateWarmQueueSize(size int) {
	globalManager.warmQueueSize.Set(float64(size))
}

// RecordWarmQueueReject records a job the queue refused ("closed", "full", "cancelled").
func RecordWarmQueueReject(reason string) {
	globalManager.warmQueueRejects.WithLabelValues(reason).Inc()
}

// RecordWarmJob records one prerender job outcome ("ok" or "error").
func RecordWarmJob(view, result string) {
	globalManager.warmJobs.WithLabelValues(view, result).Inc()
}

// UpdateWarmWorkers sets the number of running prerender workers.
func UpdateWarmWorkers(count int) {
	globalManager.warmWorkers.Set(float64(count))
}

// HTTP metrics.

// RecordHTTPRequest counts one request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes request latency.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint counts an error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency observes the latency of a failed operation.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
