package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Namespace prefixes every metric this service exports.
const Namespace = "flavorbuddy"

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Backend metrics
	backendCallsTotal   *prometheus.CounterVec
	backendCallDuration *prometheus.HistogramVec
	proxyFailuresTotal  *prometheus.CounterVec

	// Application metrics
	cacheOperations    *prometheus.CounterVec
	descriptionSources *prometheus.CounterVec
}

// NewRegistry returns a registry carrying the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetricsCollector registers the service metrics on reg
func NewMetricsCollector(reg *prometheus.Registry, logger *zap.Logger) *MetricsCollector {
	factory := promauto.With(reg)

	return &MetricsCollector{
		registry: reg,
		logger:   logger.Named("metrics"),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		backendCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "backend_calls_total",
				Help:      "Calls to the recipe backend by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		backendCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "backend_call_duration_seconds",
				Help:      "Recipe backend call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),
		proxyFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "proxy_failures_total",
				Help:      "Proxied requests that never reached the backend",
			},
			[]string{"endpoint"},
		),

		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cache_operations_total",
				Help:      "Parse result cache operations",
			},
			[]string{"operation", "status"},
		),
		descriptionSources: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "description_source_total",
				Help:      "Normalized recipes by the field their description came from",
			},
			[]string{"source"},
		),
	}
}

// Registry returns the registry the collector writes to
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPMiddleware creates a Gin middleware for HTTP metrics collection
func (m *MetricsCollector) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.observeRequest(c.Request.Method, route, c.Writer.Status(), c.Writer.Size(), time.Since(start))
	}
}

// Middleware records HTTP metrics for chi routers
func (m *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.observeRequest(r.Method, route, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}

func (m *MetricsCollector) observeRequest(method, route string, status, size int, duration time.Duration) {
	if status == 0 {
		status = http.StatusOK
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	if size >= 0 {
		m.httpResponseSize.WithLabelValues(method, route).Observe(float64(size))
	}
}

// BackendCall records one recipe backend call
func (m *MetricsCollector) BackendCall(endpoint, outcome string, duration time.Duration) {
	m.backendCallsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.backendCallDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ProxyFailure records a proxied request that failed in transport
func (m *MetricsCollector) ProxyFailure(endpoint string) {
	m.proxyFailuresTotal.WithLabelValues(endpoint).Inc()
}

// CacheOperation records a parse cache get or set
func (m *MetricsCollector) CacheOperation(operation, status string) {
	m.cacheOperations.WithLabelValues(operation, status).Inc()
}

// DescriptionSource records which fallback produced a description
func (m *MetricsCollector) DescriptionSource(source recipe.DescriptionSource) {
	m.descriptionSources.WithLabelValues(string(source)).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
