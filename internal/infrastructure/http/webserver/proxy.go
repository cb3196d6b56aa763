package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// ProxyPaths are the backend endpoints the browser may call through this server.
var ProxyPaths = []string{
	"/parse-recipe-url",
	"/get-recipes",
	"/get-favorited-recipes",
	"/get-recipe-by-id",
	"/get-related-recipes",
	"/convert-raw-recipe",
	"/like-recipe",
	"/dislike-recipe",
	"/favorite-recipe",
	"/delete-recipe",
	"/test-scrape",
}

const proxyErrorMessage = "Failed to proxy request to backend"

// Headers that describe a single connection and must not be forwarded.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Content-Length":      true,
}

// ProxyObserver counts requests that never reached the backend
type ProxyObserver interface {
	ProxyFailure(endpoint string)
}

// Proxy forwards a fixed set of paths to the recipe backend unchanged
type Proxy struct {
	target   string
	client   *http.Client
	observer ProxyObserver
	logger   *zap.Logger
}

// NewProxy creates a proxy to target. observer may be nil.
func NewProxy(target string, timeout time.Duration, observer ProxyObserver, logger *zap.Logger) *Proxy {
	return &Proxy{
		target: strings.TrimRight(target, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone()),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		observer: observer,
		logger:   logger.Named("proxy"),
	}
}

// ServeHTTP forwards the request path and query verbatim
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := p.target + r.URL.RequestURI()

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil && r.Context().Err() == nil {
		p.logger.Warn("Proxy response copy failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (p *Proxy) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(r.Context().Err(), context.Canceled) {
		return
	}

	p.logger.Error("Proxy request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	if p.observer != nil {
		p.observer.ProxyFailure(strings.TrimPrefix(r.URL.Path, "/"))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": proxyErrorMessage})
}
