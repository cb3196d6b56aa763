package performance

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func htmlHandler(body string, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func serve(t *testing.T, h http.Handler, acceptEncoding string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNegotiateEncoding(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"gzip", "gzip"},
		{"gzip, deflate, br", "br"},
		{"br;q=0, gzip;q=0.5", "gzip"},
		{"identity", ""},
		{"BR", "br"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, NegotiateEncoding(tt.header))
		})
	}
}

func TestCompressionBrotli(t *testing.T) {
	body := strings.Repeat("<p>recipe</p>", 500)
	cm := NewCompressionMiddleware(DefaultCompressionConfig())

	rec := serve(t, cm.Handler(htmlHandler(body, http.StatusCreated)), "gzip, br")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", rec.Header().Get("Vary"))

	decoded, err := io.ReadAll(brotli.NewReader(rec.Body))
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))

	stats := cm.Stats()
	assert.Equal(t, int64(1), stats.BrotliRequests)
	assert.Positive(t, stats.TotalBytesSaved)
}

func TestCompressionGzip(t *testing.T) {
	body := strings.Repeat("flour, eggs, milk. ", 200)
	cm := NewCompressionMiddleware(DefaultCompressionConfig())

	rec := serve(t, cm.Handler(htmlHandler(body, http.StatusOK)), "gzip")

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	reader, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	decoded, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))
}

func TestCompressionSkips(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())

	t.Run("small body", func(t *testing.T) {
		rec := serve(t, cm.Handler(htmlHandler("tiny", http.StatusOK)), "br")
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, "tiny", rec.Body.String())
	})

	t.Run("no accept encoding", func(t *testing.T) {
		body := strings.Repeat("a", 4096)
		rec := serve(t, cm.Handler(htmlHandler(body, http.StatusOK)), "")
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, body, rec.Body.String())
	})

	t.Run("binary type", func(t *testing.T) {
		body := strings.Repeat("a", 4096)
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = io.WriteString(w, body)
		})
		rec := serve(t, cm.Handler(h), "br")
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("already encoded", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = io.WriteString(w, strings.Repeat("x", 4096))
		})
		rec := serve(t, cm.Handler(h), "br")
		assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	})
}
