// Package logging provides a small leveled logging interface for the media
// converter service.
//
// It supports the following log levels:
//   - DEBUG: tool argument lists, artifact lifecycle events
//   - INFO: startup, completed conversions, downloads
//   - WARN: recoverable problems such as failed artifact removal
//   - ERROR: failed pipelines, with the tool's diagnostic output
//   - FATAL: errors that terminate the process
//
// The level is read once from DEBUG or LOG_LEVEL and can be overridden with
// SetLevel.
package logging
