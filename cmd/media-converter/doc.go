// Package main provides the entry point for the Media Converter service.
//
// Media Converter accepts audio and image uploads, converts them with
// FFmpeg and serves the results for download. Audio and video uploads can
// also be transcribed with whisper.cpp and translated through a
// LibreTranslate-compatible endpoint.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads .env and environment variables, then
//     creates and write-tests the storage directories
//  2. Database Initialization: Opens the SQLite database holding output
//     mappings, conversion history and service metadata
//  3. Component Initialization: storage area, FFmpeg transcoder, whisper
//     transcriber, translator and the metrics collector
//  4. HTTP Server Setup: Configures routes, CORS and middleware
//  5. Graceful Shutdown: Handles SIGINT/SIGTERM, stops running tools and
//     optionally purges the storage area
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 5000):
//     - POST /audio/convert_audio and /image/convert_image
//     - GET /download/{id}
//     - POST /transcribe/transcribe_audio, /transcribe_video,
//     /save_transcription and /translate_text
//     - Health, readiness, liveness, version and /api/stats
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Liveness endpoint (/health)
//
// # Environment Variables
//
//   - PORT, METRICS_PORT, METRICS_ENABLED
//   - DATA_DIR, UPLOAD_DIR, WORK_DIR, OUTPUT_DIR, DATABASE_DIR
//   - FFMPEG_PATH, FFMPEG_THREADS, TOOL_TIMEOUT, MAX_UPLOAD_SIZE
//   - MAPPING_STORE (sqlite or memory), MAPPING_SCOPE (process or session)
//   - DELETE_AFTER_DOWNLOAD, PURGE_ON_SHUTDOWN, CORS_ORIGINS
//   - WHISPER_PATH, WHISPER_MODEL, TRANSLATE_URL, TRANSLATE_TIMEOUT,
//     SUPPORTED_LANGUAGES
//   - LOG_LEVEL, LOG_HEALTH_CHECKS
//
// # Build Requirements
//
// CGO is required for SQLite. FFmpeg and whisper-cli must be on PATH or
// configured explicitly.
//
//	go build -o media-converter ./cmd/media-converter
package main
