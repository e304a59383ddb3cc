// Package metrics provides Prometheus instrumentation for the media converter.
//
// All metrics are prefixed with "media_converter_" and registered with the
// default Prometheus registry through promauto.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//   - HTTPResponseBytes: Histogram of response body sizes by method and path
//   - UploadBytes: Histogram of uploaded input sizes by media kind
//
// ## Database Metrics
//
//   - DBQueryTotal: Counter of queries by operation and status
//   - DBQueryDuration: Histogram of query duration by operation
//   - DBConnectionsOpen: Gauge of open database connections
//   - DBSizeBytes: Gauge of database file sizes (main, WAL, SHM)
//
// ## Conversion Metrics
//
//   - ConversionsTotal: Counter of conversions by media kind and outcome reason
//   - ConversionDuration: Histogram of end-to-end conversion time
//   - ConversionsInProgress: Gauge of running conversions
//   - ConversionStages: Counter of built pipelines by stage count
//   - ConversionOutputBytes: Histogram of produced output sizes
//
// ## Tool Metrics
//
//   - ToolInvocationsTotal: Counter of tool runs by stage and status
//   - ToolInvocationDuration: Histogram of tool run duration by stage
//   - ToolProcessesRunning: Gauge of live child processes
//
// ## Artifact Metrics
//
//   - ArtifactsCreatedTotal / ArtifactsRemovedTotal: Counters by role
//   - ArtifactRemovalErrors: Counter of failed removals by role
//   - ArtifactBytesFreed: Counter of bytes reclaimed
//   - StorageBytes: Gauge of bytes held per storage directory
//   - StatsCollectedTimestamp: Gauge of the last collector run
//
// ## Mapping and Transcription Metrics
//
//   - MappingOperationsTotal, MappingsStored, DownloadsTotal
//   - TranscriptionsTotal, TranscriptionDuration
//   - TranslationsTotal, TranslationCacheHits, TranslationCacheMisses
//   - ExportsTotal
//
// ## Capacity Metrics
//
//   - JobsWaiting, JobsRunning: Gauges of job slot admission
//   - MemoryUsageRatio, MemoryPressure: Gauges fed by the memory monitor
//
// # Collector
//
// [Collector] periodically reads a [StatsProvider] (the database) and
// refreshes the history, mapping and storage gauges:
//
//	collector := metrics.NewCollector(db, 1*time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Failure ratio of image conversions:
//
//	sum(rate(media_converter_conversions_total{kind="image",status!="success"}[5m])) /
//	sum(rate(media_converter_conversions_total{kind="image"}[5m]))
//
// Tool timeouts per stage:
//
//	rate(media_converter_tool_invocations_total{status="timeout"}[1h])
//
// Translation cache hit rate:
//
//	rate(media_converter_translation_cache_hits_total[5m]) /
//	(rate(media_converter_translation_cache_hits_total[5m]) + rate(media_converter_translation_cache_misses_total[5m]))
package metrics
