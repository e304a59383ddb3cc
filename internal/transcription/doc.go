// Package transcription turns uploaded audio and video into text.
//
// An upload is normalised to 16 kHz mono PCM WAV with the transcoding
// tool, passed to a speech recognizer (a whisper.cpp command line by
// default) and, when source and target languages differ, sent to a
// LibreTranslate-compatible HTTP API. Every file the request creates is
// tracked in an artifacts.Set so only a saved transcript document
// outlives the request.
package transcription
