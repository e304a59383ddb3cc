package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// Level is the gzip compression level (gzip.BestSpeed to gzip.BestCompression)
	Level int
	// CompressibleTypes is a list of content types that should be compressed
	CompressibleTypes []string
	// SkipPaths are path prefixes served byte-for-byte. Downloads go here so
	// Range requests and Content-Length stay valid.
	SkipPaths []string
}

// DefaultCompressionConfig returns sensible defaults for compression
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"text/plain",
			"application/json",
			"application/problem+json",
		},
		SkipPaths: []string{"/download/", "/metrics"},
	}
}

// gzipWriterPool reuses writers at the default level; other levels
// allocate per response.
var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	},
}

func acquireGzipWriter(w io.Writer, level int) *gzip.Writer {
	if level == gzip.DefaultCompression {
		gz := gzipWriterPool.Get().(*gzip.Writer)
		gz.Reset(w)
		return gz
	}
	gz, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		gz = gzip.NewWriter(w)
	}
	return gz
}

func releaseGzipWriter(gz *gzip.Writer, level int) {
	if level == gzip.DefaultCompression {
		gzipWriterPool.Put(gz)
	}
}

// gzipResponseWriter buffers the first MinSize bytes, then decides once
// whether the rest of the response is compressed.
type gzipResponseWriter struct {
	http.ResponseWriter
	gzipWriter     *gzip.Writer
	config         CompressionConfig
	buffer         []byte
	statusCode     int
	decided        bool
	shouldCompress bool
}

func newGzipResponseWriter(w http.ResponseWriter, config CompressionConfig) *gzipResponseWriter {
	return &gzipResponseWriter{
		ResponseWriter: w,
		config:         config,
		statusCode:     http.StatusOK,
		buffer:         make([]byte, 0, config.MinSize+1),
	}
}

// WriteHeader captures the status code
func (g *gzipResponseWriter) WriteHeader(statusCode int) {
	if g.decided {
		return
	}
	g.statusCode = statusCode
}

// Write buffers data until we know if we should compress
func (g *gzipResponseWriter) Write(data []byte) (int, error) {
	if g.decided {
		if g.gzipWriter != nil {
			return g.gzipWriter.Write(data)
		}
		return g.ResponseWriter.Write(data)
	}

	g.buffer = append(g.buffer, data...)
	if len(g.buffer) > g.config.MinSize {
		if err := g.finalize(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

// compressible reports whether the headers set by the handler allow
// compressing this response.
func (g *gzipResponseWriter) compressible() bool {
	h := g.Header()
	if h.Get("Content-Encoding") != "" || h.Get("Content-Range") != "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(h.Get("Content-Disposition")), "attachment") {
		return false
	}
	if g.statusCode == http.StatusNoContent || g.statusCode == http.StatusNotModified ||
		g.statusCode == http.StatusPartialContent {
		return false
	}

	contentType := h.Get("Content-Type")
	if contentType == "" {
		return false
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, compressible := range g.config.CompressibleTypes {
		if mediaType == compressible {
			return true
		}
	}
	return false
}

// finalize decides whether to compress and writes the buffered data
func (g *gzipResponseWriter) finalize() error {
	if g.decided {
		return nil
	}
	g.decided = true
	g.shouldCompress = len(g.buffer) >= g.config.MinSize && g.compressible()

	buffered := g.buffer
	g.buffer = nil

	if !g.shouldCompress {
		g.ResponseWriter.WriteHeader(g.statusCode)
		_, err := g.ResponseWriter.Write(buffered)
		return err
	}

	g.Header().Del("Content-Length")
	g.Header().Set("Content-Encoding", "gzip")
	g.Header().Add("Vary", "Accept-Encoding")
	g.gzipWriter = acquireGzipWriter(g.ResponseWriter, g.config.Level)
	g.ResponseWriter.WriteHeader(g.statusCode)
	_, err := g.gzipWriter.Write(buffered)
	return err
}

// Close finalizes the response and returns the gzip writer to the pool
func (g *gzipResponseWriter) Close() error {
	if err := g.finalize(); err != nil {
		return err
	}
	if g.gzipWriter == nil {
		return nil
	}
	err := g.gzipWriter.Close()
	releaseGzipWriter(g.gzipWriter, g.config.Level)
	g.gzipWriter = nil
	return err
}

// Flush implements http.Flusher
func (g *gzipResponseWriter) Flush() {
	_ = g.finalize()
	if g.gzipWriter != nil {
		g.gzipWriter.Flush()
	}
	if flusher, ok := g.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Compression returns a middleware that compresses responses using gzip
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || r.Header.Get("Range") != "" {
				next.ServeHTTP(w, r)
				return
			}
			for _, prefix := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			gzw := newGzipResponseWriter(w, config)
			defer gzw.Close()

			next.ServeHTTP(gzw, r)
		})
	}
}
