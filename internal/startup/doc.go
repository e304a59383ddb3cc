// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read from environment variables by [LoadConfig]. When the
// file named by ENV_FILE (default .env) exists it is loaded first; variables
// already present in the environment take precedence over the file.
//
//   - PORT: HTTP server port (default: 5000)
//   - METRICS_PORT, METRICS_ENABLED: Prometheus server (default: 9090, true)
//   - DATA_DIR: root of the storage area (default: ./data)
//   - UPLOAD_DIR, WORK_DIR, OUTPUT_DIR, DATABASE_DIR: default to
//     subdirectories of DATA_DIR
//   - FFMPEG_PATH, FFMPEG_THREADS: transcoding tool and its thread hint
//   - TOOL_TIMEOUT: bound on each tool invocation (default: 10m)
//   - MAX_UPLOAD_SIZE: multipart body limit in bytes (default: 512 MiB)
//   - MAPPING_STORE: sqlite or memory (default: sqlite)
//   - MAPPING_SCOPE: process or session (default: process)
//   - DELETE_AFTER_DOWNLOAD: remove outputs once served (default: false)
//   - PURGE_ON_SHUTDOWN: empty the storage area on exit (default: true)
//   - CORS_ORIGINS: comma separated allowed origins
//   - WHISPER_PATH, WHISPER_MODEL: speech recognizer binary and model
//   - TRANSLATE_URL, TRANSLATE_TIMEOUT: translation API
//   - SUPPORTED_LANGUAGES: comma separated language allow-list
//   - LOG_LEVEL, LOG_HEALTH_CHECKS: logging
//
// Invalid numbers, durations, booleans and choices fall back to their
// defaults with a warning. Every storage directory must exist or be
// creatable, and be writable.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
