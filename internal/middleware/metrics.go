package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"media-converter/internal/metrics"
)

// metricsResponseWriter captures the status code and body size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are path prefixes that are not recorded.
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/livez", "/readyz"},
	}
}

// unmatchedPath labels requests no route answered, so scanners requesting
// random URLs cannot grow the label set.
const unmatchedPath = "{unmatched}"

// Metrics returns a middleware that records request counts, latencies and
// response sizes. It sits outside the compression middleware so sizes are
// measured after compression.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			path := normalizePath(r.URL.Path)
			if wrapped.statusCode == http.StatusNotFound && !knownPath(path) {
				path = unmatchedPath
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
			metrics.HTTPResponseBytes.WithLabelValues(r.Method, path).Observe(float64(wrapped.written))
		})
	}
}

// templatedPrefixes end in a single identifier segment.
var templatedPrefixes = map[string]string{
	"/download/": "/download/{id}",
}

// knownPath reports whether a normalized path belongs to a route whose 404
// is a real answer (an unknown download id) rather than a miss.
func knownPath(path string) bool {
	for _, template := range templatedPrefixes {
		if path == template {
			return true
		}
	}
	return false
}

// normalizePath normalizes the path for metrics to avoid high cardinality.
// Identifier segments become placeholders and anything deeper than two
// segments is collapsed.
func normalizePath(path string) string {
	for prefix, template := range templatedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return template
		}
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 2 {
		return "/" + strings.Join(parts[:2], "/") + "/{path}"
	}
	return path
}
