package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPResponseBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_http_response_bytes",
			Help:    "Size of HTTP response bodies in bytes, after compression",
			Buckets: prometheus.ExponentialBuckets(256, 4, 12),
		},
		[]string{"method", "path"},
	)

	UploadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_upload_bytes",
			Help:    "Size of uploaded input files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 12),
		},
		[]string{"kind"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_conversions_total",
			Help: "Total number of conversion requests by media kind and outcome reason",
		},
		[]string{"kind", "status"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_conversion_duration_seconds",
			Help:    "End-to-end conversion duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	ConversionsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_conversions_in_progress",
			Help: "Number of conversions currently in progress",
		},
	)

	ConversionStages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_conversion_pipelines_total",
			Help: "Total number of pipelines built, by media kind and stage count",
		},
		[]string{"kind", "stages"},
	)

	ConversionOutputBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_conversion_output_bytes",
			Help:    "Size of produced output files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 12),
		},
		[]string{"kind"},
	)
)

// Tool invocation metrics
var (
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_tool_invocations_total",
			Help: "Total number of external tool invocations by stage and status",
		},
		[]string{"stage", "status"},
	)

	ToolInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_tool_invocation_duration_seconds",
			Help:    "External tool invocation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	ToolProcessesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_tool_processes_running",
			Help: "Number of external tool processes currently running",
		},
	)
)

// Artifact metrics
var (
	ArtifactsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_artifacts_created_total",
			Help: "Total number of tracked artifacts by role",
		},
		[]string{"role"},
	)

	ArtifactsRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_artifacts_removed_total",
			Help: "Total number of artifacts removed by role",
		},
		[]string{"role"},
	)

	ArtifactRemovalErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_artifact_removal_errors_total",
			Help: "Total number of failed artifact removals by role",
		},
		[]string{"role"},
	)

	ArtifactBytesFreed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_artifact_bytes_freed_total",
			Help: "Total bytes freed by artifact removal and purges",
		},
	)

	StorageBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_storage_bytes",
			Help: "Bytes currently held in each storage directory",
		},
		[]string{"dir"}, // "uploads", "work", "outputs"
	)

	StatsCollectedTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_stats_collected_timestamp_seconds",
			Help: "Unix time of the last successful stats collection",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_filesystem_retry_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Job admission metrics
var (
	JobsWaiting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_jobs_waiting",
			Help: "Number of requests waiting for a free job slot",
		},
	)

	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_jobs_running",
			Help: "Number of conversion and transcription jobs holding a slot",
		},
	)
)

// Output mapping metrics
var (
	MappingOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_mapping_operations_total",
			Help: "Total number of output mapping operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	MappingsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_mappings_stored",
			Help: "Number of output mappings currently recorded",
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_downloads_total",
			Help: "Total number of download requests by status",
		},
		[]string{"status"},
	)
)

// Transcription metrics
var (
	TranscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_transcriptions_total",
			Help: "Total number of transcription requests by source kind and status",
		},
		[]string{"source", "status"},
	)

	TranscriptionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_transcription_duration_seconds",
			Help:    "Speech recognition duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_translations_total",
			Help: "Total number of translation requests by status",
		},
		[]string{"status"},
	)

	TranslationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_translation_cache_hits_total",
			Help: "Total number of translation cache hits",
		},
	)

	TranslationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_translation_cache_misses_total",
			Help: "Total number of translation cache misses",
		},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_exports_total",
			Help: "Total number of transcript exports by format",
		},
		[]string{"format"},
	)
)

// History metrics, refreshed by the collector from the database
var (
	ConversionHistory = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_conversion_history",
			Help: "Conversions recorded in the history table by media kind",
		},
		[]string{"kind"},
	)

	ConversionHistoryFailed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_conversion_history_failed",
			Help: "Failed conversions recorded in the history table",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_usage_ratio",
			Help: "Go heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPressure = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_pressure",
			Help: "1 while heap usage is above the critical watermark and the service reports not ready",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
