// Package performance provides response compression for pages and static assets
package performance

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// CompressionConfig configures compression behavior
type CompressionConfig struct {
	BrotliLevel       int      // Brotli compression level (0-11)
	GzipLevel         int      // Gzip compression level (1-9)
	MinSizeBytes      int      // Minimum response size to compress
	CompressibleTypes []string // MIME types to compress
}

// DefaultCompressionConfig returns sensible defaults
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		BrotliLevel:  5,
		GzipLevel:    gzip.DefaultCompression,
		MinSizeBytes: 1024,
		CompressibleTypes: []string{
			"text/html",
			"text/css",
			"text/javascript",
			"application/javascript",
			"application/json",
			"text/plain",
			"image/svg+xml",
		},
	}
}

// CompressionStats tracks compression results
type CompressionStats struct {
	TotalRequests      int64 `json:"total_requests"`
	CompressedRequests int64 `json:"compressed_requests"`
	BrotliRequests     int64 `json:"brotli_requests"`
	GzipRequests       int64 `json:"gzip_requests"`
	TotalBytesSaved    int64 `json:"total_bytes_saved"`
}

// CompressionMiddleware negotiates brotli or gzip and compresses buffered responses
type CompressionMiddleware struct {
	config CompressionConfig
	stats  CompressionStats
	mu     sync.Mutex
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	return &CompressionMiddleware{config: config}
}

// Handler returns the middleware handler function
func (cm *CompressionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cm.record(func(s *CompressionStats) { s.TotalRequests++ })

		encoding := NegotiateEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" || r.Method == http.MethodHead || r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}

		buffered := &bufferedWriter{ResponseWriter: w, buffer: new(bytes.Buffer)}
		next.ServeHTTP(buffered, r)
		cm.finish(buffered, encoding)
	})
}

// Stats returns a snapshot of the counters
func (cm *CompressionMiddleware) Stats() CompressionStats {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.stats
}

func (cm *CompressionMiddleware) finish(bw *bufferedWriter, encoding string) {
	content := bw.buffer.Bytes()
	header := bw.Header()
	status := bw.status
	if status == 0 {
		status = http.StatusOK
	}

	if !cm.shouldCompress(header, status, len(content)) {
		bw.ResponseWriter.WriteHeader(status)
		_, _ = bw.ResponseWriter.Write(content)
		return
	}

	compressed, err := cm.compress(content, encoding)
	if err != nil || len(compressed) >= len(content) {
		bw.ResponseWriter.WriteHeader(status)
		_, _ = bw.ResponseWriter.Write(content)
		return
	}

	header.Set("Content-Encoding", encoding)
	header.Set("Content-Length", strconv.Itoa(len(compressed)))
	header.Add("Vary", "Accept-Encoding")
	bw.ResponseWriter.WriteHeader(status)
	_, _ = bw.ResponseWriter.Write(compressed)

	cm.record(func(s *CompressionStats) {
		s.CompressedRequests++
		s.TotalBytesSaved += int64(len(content) - len(compressed))
		if encoding == "br" {
			s.BrotliRequests++
		} else {
			s.GzipRequests++
		}
	})
}

func (cm *CompressionMiddleware) shouldCompress(header http.Header, status, size int) bool {
	if size < cm.config.MinSizeBytes || header.Get("Content-Encoding") != "" {
		return false
	}
	if status < http.StatusOK || status == http.StatusNoContent || status == http.StatusNotModified {
		return false
	}
	return cm.isCompressibleType(header.Get("Content-Type"))
}

func (cm *CompressionMiddleware) compress(content []byte, encoding string) ([]byte, error) {
	var buf bytes.Buffer
	var writer io.WriteCloser

	if encoding == "br" {
		writer = brotli.NewWriterLevel(&buf, cm.config.BrotliLevel)
	} else {
		gz, err := gzip.NewWriterLevel(&buf, cm.config.GzipLevel)
		if err != nil {
			return nil, err
		}
		writer = gz
	}

	if _, err := writer.Write(content); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// isCompressibleType checks if the content type should be compressed
func (cm *CompressionMiddleware) isCompressibleType(contentType string) bool {
	mainType := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	if mainType == "" {
		return false
	}
	for _, compressible := range cm.config.CompressibleTypes {
		if mainType == compressible {
			return true
		}
	}
	return false
}

func (cm *CompressionMiddleware) record(fn func(*CompressionStats)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	fn(&cm.stats)
}

// NegotiateEncoding picks br over gzip from an Accept-Encoding header.
// Encodings with q=0 are refused.
func NegotiateEncoding(header string) string {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		quality := 1.0
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if parsed, err := strconv.ParseFloat(q, 64); err == nil {
				quality = parsed
			}
		}
		accepted[strings.ToLower(strings.TrimSpace(name))] = quality > 0
	}

	switch {
	case accepted["br"]:
		return "br"
	case accepted["gzip"]:
		return "gzip"
	default:
		return ""
	}
}

// bufferedWriter holds the response until the handler returns
type bufferedWriter struct {
	http.ResponseWriter
	buffer *bytes.Buffer
	status int
}

func (bw *bufferedWriter) WriteHeader(status int) {
	if bw.status == 0 {
		bw.status = status
	}
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	if bw.status == 0 {
		bw.status = http.StatusOK
	}
	return bw.buffer.Write(b)
}
