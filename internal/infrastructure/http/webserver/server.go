// Package webserver provides the web frontend HTTP server implementation
package webserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"github.com/flavorbuddy/web/internal/infrastructure/hotreload"
	"github.com/flavorbuddy/web/internal/infrastructure/http/middleware"
	"github.com/flavorbuddy/web/internal/infrastructure/monitoring"
	"github.com/flavorbuddy/web/internal/infrastructure/performance"
	"github.com/flavorbuddy/web/internal/ports/inbound"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Live reload endpoints, mounted only when hot reload is on.
const (
	liveReloadPath   = "/__livereload"
	liveReloadScript = "/__livereload.js"
)

// WebServer represents the web frontend HTTP server
type WebServer struct {
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
	router      chi.Router
	service     inbound.RecipeService
	templates   *renderer
	validate    *validator.Validate
	proxy       http.Handler
	api         http.Handler
	metrics     *monitoring.MetricsCollector
	limiter     *middleware.ClientLimiter
	compression *performance.CompressionMiddleware

	hub              *hotreload.Hub
	watcher          *hotreload.Watcher
	liveReloadScript string
}

// NewWebServer creates a new web frontend server instance. api serves the
// JSON API and the operational endpoints; metrics and limiter may be nil.
func NewWebServer(
	cfg *config.Config,
	service inbound.RecipeService,
	proxy http.Handler,
	api http.Handler,
	metrics *monitoring.MetricsCollector,
	limiter *middleware.ClientLimiter,
	logger *zap.Logger,
) (*WebServer, error) {
	logger = logger.Named("web")

	source := embeddedTemplates()
	hotReload := cfg.Server.HotReload && cfg.Server.TemplateDir != ""
	if hotReload {
		source = os.DirFS(cfg.Server.TemplateDir)
	}

	templates, err := newRenderer(source, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &WebServer{
		config:    cfg,
		logger:    logger,
		service:   service,
		templates: templates,
		validate:  validator.New(),
		proxy:     proxy,
		api:       api,
		metrics:   metrics,
		limiter:   limiter,
	}

	if cfg.Server.EnableCompression {
		s.compression = performance.NewCompressionMiddleware(performance.DefaultCompressionConfig())
	}

	if hotReload {
		if err := s.enableHotReload(); err != nil {
			return nil, err
		}
	}

	s.router = s.setupRoutes()

	var handler http.Handler = s.router
	if cfg.Server.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{IdleTimeout: cfg.Server.IdleTimeout})
	}

	s.server = &http.Server{
		Addr:           cfg.ListenAddr(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s, nil
}

// enableHotReload watches the template directory, reparses on change and
// tells connected browsers to reload.
func (s *WebServer) enableHotReload() error {
	s.hub = hotreload.NewHub(s.logger)
	s.liveReloadScript = liveReloadScript

	watcher, err := hotreload.NewWatcher(hotreload.DefaultWatcherConfig(), func(path string) {
		if err := s.templates.Reload(); err != nil {
			s.logger.Error("Template reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		s.logger.Info("Templates reloaded", zap.String("path", path))
		s.hub.Reload(path)
	}, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create template watcher: %w", err)
	}
	if err := watcher.Add(s.config.Server.TemplateDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.config.Server.TemplateDir, err)
	}

	s.watcher = watcher
	return nil
}

// setupRoutes configures the web frontend routes
func (s *WebServer) setupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	// JSON API and operational endpoints, instrumented by the API itself
	if s.api != nil {
		r.Handle("/api/v1/*", s.api)
		for _, path := range []string{
			s.config.Monitoring.HealthCheckPath,
			s.config.Monitoring.ReadinessPath,
			"/live",
			"/metrics",
		} {
			if path != "" {
				r.Handle(path, s.api)
			}
		}
	}

	// Pass-through to the recipe backend
	if s.proxy != nil {
		r.Group(func(r chi.Router) {
			s.instrument(r)
			r.Use(s.limiter.Handler)
			for _, path := range ProxyPaths {
				r.Handle(path, s.proxy)
			}
		})
	}

	if s.hub != nil {
		r.Handle(liveReloadPath, s.hub)
		r.Get(liveReloadScript, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/javascript")
			w.Header().Set("Cache-Control", "no-store")
			_, _ = w.Write([]byte(hotreload.ClientScript(liveReloadPath)))
		})
	}

	r.Group(func(r chi.Router) {
		s.instrument(r)
		if s.compression != nil {
			r.Use(s.compression.Handler)
		}
		r.Use(middleware.SecurityHeaders(s.config.IsProduction()))

		r.Handle("/static/*", staticHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.identityMiddleware)
			r.Use(middleware.HTMX)

			r.Get("/", s.handleRecipePage)
			r.Get("/recipe", s.handleRecipePage)
			r.Get("/convert-text", s.handleConvertForm)
			r.Post("/convert-text", s.handleConvert)
			r.Get("/search", s.handleSearch)
			r.Get("/favorites", s.handleFavorites)

			r.Route("/htmx/recipes/{id}", func(r chi.Router) {
				r.Use(s.limiter.Handler)
				r.Post("/like", s.handleVote(inbound.ActionLike))
				r.Post("/dislike", s.handleVote(inbound.ActionDislike))
				r.Post("/favorite", s.handleFavorite)
				r.Post("/delete", s.handleDelete)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})

	return r
}

func (s *WebServer) instrument(r chi.Router) {
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
}

// staticHandler serves the embedded assets with a one year cache lifetime.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	files := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000")
		files.ServeHTTP(w, r)
	})
}

// requestLogger logs each request once it has been served.
func (s *WebServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		if r.URL.Path == s.config.Monitoring.HealthCheckPath || r.URL.Path == "/metrics" {
			return
		}

		fields := []zap.Field{
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		}
		if ww.Status() >= 500 {
			s.logger.Error("HTTP request", fields...)
			return
		}
		s.logger.Info("HTTP request", fields...)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *WebServer) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly.
func (s *WebServer) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	if s.watcher != nil {
		s.watcher.Start()
	}

	s.logger.Info("Starting web server",
		zap.String("address", listener.Addr().String()),
		zap.Bool("h2c", s.config.Server.EnableH2C),
		zap.Bool("hot_reload", s.watcher != nil),
	)

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Web server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the web server
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down web server")

	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	return s.server.Shutdown(ctx)
}
