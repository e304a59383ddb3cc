package metrics

// Label values pre-populated by InitializeMetrics. Other packages use the
// same strings when recording.
var (
	Kinds         = []string{"audio", "image", "video"}
	ToolStages    = []string{"convert", "transform", "flip", "extract", "transcribe"}
	ToolStatuses  = []string{"success", "failure", "timeout", "canceled"}
	ArtifactRoles = []string{"upload", "intermediate", "output", "transcript"}
	StorageDirs   = []string{"uploads", "work", "outputs"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Conversions per kind ---
	for _, kind := range Kinds {
		ConversionDuration.WithLabelValues(kind)
		ConversionOutputBytes.WithLabelValues(kind)
		UploadBytes.WithLabelValues(kind)
		ConversionHistory.WithLabelValues(kind)
		ConversionsTotal.WithLabelValues(kind, "success")
	}

	// --- Tool stages × status ---
	for _, stage := range ToolStages {
		ToolInvocationDuration.WithLabelValues(stage)
		for _, status := range ToolStatuses {
			ToolInvocationsTotal.WithLabelValues(stage, status)
		}
	}

	// --- Artifact roles ---
	for _, role := range ArtifactRoles {
		ArtifactsCreatedTotal.WithLabelValues(role)
		ArtifactsRemovedTotal.WithLabelValues(role)
		ArtifactRemovalErrors.WithLabelValues(role)
	}

	for _, dir := range StorageDirs {
		StorageBytes.WithLabelValues(dir)
	}

	// --- Filesystem retries (per operation × volume) ---
	for _, op := range []string{"stat", "open", "remove"} {
		for _, vol := range append(StorageDirs, "database", "unknown") {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- Mapping registry ---
	for _, op := range []string{"record", "resolve"} {
		for _, result := range []string{"success", "not_found", "error"} {
			MappingOperationsTotal.WithLabelValues(op, result)
		}
	}

	for _, status := range []string{"success", "not_found", "error"} {
		DownloadsTotal.WithLabelValues(status)
		TranslationsTotal.WithLabelValues(status)
	}

	for _, source := range []string{"audio", "video"} {
		TranscriptionsTotal.WithLabelValues(source, "success")
		TranscriptionsTotal.WithLabelValues(source, "error")
	}

	for _, format := range []string{"txt", "json", "docx", "pdf"} {
		ExportsTotal.WithLabelValues(format)
	}

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "insert_mapping", "get_mapping", "count_mappings",
		"delete_mappings", "insert_conversion", "conversion_stats", "recent_conversions"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}
}
