package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ResponseWriter wrapper to capture status code and bytes written
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths       []string
	LogHealthChecks bool
}

// DefaultLoggingConfig returns a sensible default configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:       []string{"/metrics"},
		LogHealthChecks: true,
	}
}

// RequestIDHeader carries the correlation ID of a request in both
// directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the correlation ID Logger attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID reuses a client-supplied ID when it is short and plain,
// otherwise it mints a new one.
func requestID(r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if id == "" || len(id) > 64 {
		return uuid.NewString()
	}
	for _, c := range id {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '.') {
			return uuid.NewString()
		}
	}
	return id
}

// W3CLogger handles W3C Extended Log Format logging. The #Software and
// #Fields directives are written before the first entry.
type W3CLogger struct {
	config      LoggingConfig
	serviceName string
	header      sync.Once
}

// w3cFields lists the columns of every entry, in order.
const w3cFields = "date time x-request-id c-ip cs-method cs-uri-stem cs-uri-query sc-status cs-bytes sc-bytes time-taken sc(Content-Encoding) cs(User-Agent)"

// NewW3CLogger creates a new W3C format logger
func NewW3CLogger(config LoggingConfig, serviceName string) *W3CLogger {
	return &W3CLogger{
		config:      config,
		serviceName: serviceName,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// sanitizeLogField removes control characters that could be used for log injection.
// This includes newlines, carriage returns, tabs, null bytes, and ANSI escape sequences.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			// Replace newlines/carriage returns with spaces to prevent log line forging
			b.WriteRune(' ')
		case r == '\x00':
			// Strip null bytes entirely
			continue
		case r == '\x1b':
			// Strip ANSI escape character to prevent terminal escape injection
			continue
		case r < 0x20 && r != '\t':
			// Strip other control characters (except tab which is benign in logs)
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Logger returns HTTP logging middleware using W3C Extended Log Format.
// Every request gets a correlation ID, echoed in the X-Request-ID response
// header and available to handlers through RequestID.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	logger := NewW3CLogger(config, "MediaConverter/1.0")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r)
			w.Header().Set(RequestIDHeader, id)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			logger.logRequest(r, id, wrapped, time.Since(start))
		})
	}
}

func (l *W3CLogger) logRequest(r *http.Request, id string, rw *responseWriter, duration time.Duration) {
	l.header.Do(func() {
		log.Printf("#Software: %s", l.serviceName)
		log.Printf("#Fields: %s", w3cFields)
	})

	now := time.Now().UTC()

	uriQuery := sanitizeLogField(r.URL.RawQuery)
	if uriQuery == "" {
		uriQuery = "-"
	}

	// Uploads dominate request sizes, so cs-bytes is logged too.
	requestBytes := r.ContentLength
	if requestBytes < 0 {
		requestBytes = 0
	}

	contentEncoding := rw.Header().Get("Content-Encoding")
	if contentEncoding == "" {
		contentEncoding = "-"
	}

	userAgent := sanitizeLogField(r.Header.Get("User-Agent"))
	if userAgent == "" {
		userAgent = "-"
	} else {
		userAgent = escapeW3CField(userAgent)
	}

	//nolint:gosec // G706: user-controlled fields pass through sanitizeLogField
	log.Println(fmt.Sprintf("%s %s %s %s %s %s %s %d %d %d %d %s %s",
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		id,
		sanitizeLogField(getClientIP(r)),
		sanitizeLogField(r.Method),
		sanitizeLogField(r.URL.Path),
		uriQuery,
		rw.statusCode,
		requestBytes,
		rw.bytesWritten,
		duration.Milliseconds(),
		contentEncoding,
		userAgent,
	))
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return !config.LogHealthChecks && healthCheckPaths[path]
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// escapeW3CField escapes a field value for W3C log format
// Replaces spaces with + and quotes with escaped quotes
func escapeW3CField(s string) string {
	// If contains space or special chars, quote it
	if strings.ContainsAny(s, " \t\"") {
		s = strings.ReplaceAll(s, "\"", "\"\"")
		return "\"" + s + "\""
	}
	return s
}
