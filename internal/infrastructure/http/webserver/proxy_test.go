package webserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flavorbuddy/web/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type proxyFailures struct {
	endpoints []string
}

func (p *proxyFailures) ProxyFailure(endpoint string) {
	p.endpoints = append(p.endpoints, endpoint)
}

func TestProxyForwardsRequestVerbatim(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/like-recipe", r.URL.Path)
		assert.Equal(t, "trace=1", r.URL.RawQuery)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"recipe_id":5,"user_id":"u"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Backend", "yes")
		w.Header().Set("Connection", "close")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"likes":6}`))
	}))
	defer backend.Close()

	proxy := NewProxy(backend.URL+"/", time.Second, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/like-recipe?trace=1", strings.NewReader(`{"recipe_id":5,"user_id":"u"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Backend"))
	assert.Empty(t, rec.Header().Get("Connection"))
	assert.JSONEq(t, `{"likes":6}`, rec.Body.String())
}

func TestProxyPassesBackendErrorsThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Recipe not found"}`))
	}))
	defer backend.Close()

	proxy := NewProxy(backend.URL, time.Second, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get-recipe-by-id?id=9", nil))

	testutils.NewHTTPAssertions(t).ErrorResponse(rec, "Recipe not found")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProxyTransportFailure(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	target := backend.URL
	backend.Close()

	failures := &proxyFailures{}
	proxy := NewProxy(target, time.Second, failures, zap.NewNop())

	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get-recipes", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to proxy request to backend"}`, rec.Body.String())
	assert.Equal(t, []string{"get-recipes"}, failures.endpoints)
}

func TestProxyPathsCoverBackendEndpoints(t *testing.T) {
	for _, path := range []string{
		"/parse-recipe-url", "/get-recipes", "/get-favorited-recipes", "/get-recipe-by-id",
		"/get-related-recipes", "/convert-raw-recipe", "/like-recipe", "/dislike-recipe",
		"/favorite-recipe", "/delete-recipe", "/test-scrape",
	} {
		assert.Contains(t, ProxyPaths, path)
	}
}
