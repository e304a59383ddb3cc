// Package handlers exposes the conversion and transcription services over
// HTTP.
//
// It includes handlers for:
//   - Audio and image conversion uploads
//   - Downloads of converted outputs by identifier
//   - Audio and video transcription, translation and transcript export
//   - Health, readiness and liveness checks
//   - Version information and conversion statistics
//
// Every failure is reported as a JSON ErrorResponse whose status code is
// derived from the apperror reason.
package handlers
