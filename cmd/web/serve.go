package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apprecipe "github.com/flavorbuddy/web/internal/application/recipe"
	"github.com/flavorbuddy/web/internal/infrastructure/cache"
	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"github.com/flavorbuddy/web/internal/infrastructure/http/apiserver"
	"github.com/flavorbuddy/web/internal/infrastructure/http/middleware"
	"github.com/flavorbuddy/web/internal/infrastructure/http/webserver"
	"github.com/flavorbuddy/web/internal/infrastructure/monitoring"
	"github.com/flavorbuddy/web/internal/ports/inbound"
	"github.com/flavorbuddy/web/internal/ports/outbound"
	"github.com/flavorbuddy/web/pkg/healthcheck"
	"github.com/flavorbuddy/web/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const (
	metricsNamespace  = "flavorbuddy"
	maxGoroutines     = 10000
	cacheCleanupEvery = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp(configPath)
		if err := app.Err(); err != nil {
			return err
		}

		startCtx, cancel := context.WithTimeout(cmd.Context(), app.StartTimeout())
		defer cancel()
		if err := app.Start(startCtx); err != nil {
			return err
		}

		<-app.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		return app.Stop(stopCtx)
	},
}

func newApp(path string) *fx.App {
	return fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
		fx.Provide(
			func() (*config.Config, error) { return config.Load(path) },
			newLogger,
			monitoring.NewRegistry,
			newMetrics,
			newHealthMetrics,
			newTracing,
			newMeterProvider,
			newBackendBreaker,
			newAPIClient,
			newRedisClient,
			newCache,
			newRecipeService,
			newLimiter,
			newHealthCheck,
			newAPIServer,
			newWebServer,
		),
		fx.Invoke(registerLifecycleHooks),
	)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: cfg.App.Debug,
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
	})
}

func newMetrics(reg *prometheus.Registry, log *zap.Logger) *monitoring.MetricsCollector {
	return monitoring.NewMetricsCollector(reg, log)
}

func newHealthMetrics(reg *prometheus.Registry) *healthcheck.HealthMetrics {
	return healthcheck.NewHealthMetrics(reg, metricsNamespace)
}

func newTracing(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
	tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		Endpoint:       cfg.Monitoring.OTLPEndpoint,
		Insecure:       cfg.Monitoring.OTLPInsecure,
		SamplingRate:   cfg.Monitoring.SamplingRate,
		Enabled:        cfg.Monitoring.EnableTracing,
	}, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: tp.Shutdown})
	return tp, nil
}

func newMeterProvider(lc fx.Lifecycle, reg *prometheus.Registry) (*monitoring.MeterProvider, error) {
	mp, err := monitoring.NewMeterProvider(reg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: mp.Shutdown})
	return mp, nil
}

func newBackendBreaker(cfg *config.Config, hm *healthcheck.HealthMetrics, log *zap.Logger) *healthcheck.CircuitBreaker {
	log = log.Named("breaker")
	return healthcheck.NewCircuitBreaker("recipe_backend", healthcheck.CircuitBreakerConfig{
		FailureThreshold: cfg.Backend.CircuitBreaker.MaxFailures,
		SuccessThreshold: 1,
		Timeout:          cfg.Backend.CircuitBreaker.ResetTimeout,
		MaxRequests:      1,
		IsFailure:        webserver.CountsAsBackendFailure,
		OnStateChange: hm.ObserveStateChanges(func(name string, from, to healthcheck.CircuitBreakerState) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}),
	})
}

func newAPIClient(cfg *config.Config, breaker *healthcheck.CircuitBreaker, metrics *monitoring.MetricsCollector, log *zap.Logger) *webserver.APIClient {
	return webserver.NewAPIClient(cfg.Backend, breaker, metrics, log)
}

// newRedisClient connects only when the redis cache driver is selected
func newRedisClient(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (redis.UniversalClient, error) {
	if cfg.Cache.Driver != cache.DriverRedis {
		return nil, nil
	}

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
	return client, nil
}

func newCache(cfg *config.Config, client redis.UniversalClient, log *zap.Logger) (outbound.CacheRepository, error) {
	return cache.New(cfg, client, log.Named("cache"))
}

func newRecipeService(
	cfg *config.Config,
	client *webserver.APIClient,
	repo outbound.CacheRepository,
	metrics *monitoring.MetricsCollector,
	log *zap.Logger,
) inbound.RecipeService {
	return apprecipe.NewRecipeService(apprecipe.Config{
		ListDescriptionLimit:   cfg.Normalizer.ListDescriptionLimit,
		ViewerDescriptionLimit: cfg.Normalizer.ViewerDescriptionLimit,
		MaxListDepth:           cfg.Normalizer.MaxListDepth,
		PageSize:               cfg.Listing.PageSize,
		RelatedLimit:           cfg.Listing.RelatedLimit,
		CacheTTL:               cfg.Cache.TTL,
	}, client, repo, metrics, log)
}

func newLimiter(cfg *config.Config) *middleware.ClientLimiter {
	return middleware.NewClientLimiter(cfg.RateLimit)
}

func newHealthCheck(
	cfg *config.Config,
	client *webserver.APIClient,
	breaker *healthcheck.CircuitBreaker,
	redisClient redis.UniversalClient,
	hm *healthcheck.HealthMetrics,
	log *zap.Logger,
) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log)
	hc.SetCacheTTL(cfg.Monitoring.HealthCacheTTL)

	hc.Register("system", healthcheck.WithMetrics(hm, "system", healthcheck.NewSystemChecker(maxGoroutines)))
	hc.Register("recipe_backend", healthcheck.WithMetrics(hm, "recipe_backend",
		healthcheck.NewDependencyChecker("recipe_backend", client, breaker)))
	if redisClient != nil {
		hc.Register("redis", healthcheck.WithMetrics(hm, "redis", healthcheck.NewRedisChecker(redisClient)))
	}
	return hc
}

func newAPIServer(
	cfg *config.Config,
	service inbound.RecipeService,
	hc *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
	limiter *middleware.ClientLimiter,
	log *zap.Logger,
) *apiserver.Server {
	return apiserver.NewServer(cfg, service, hc, metrics, middleware.New(cfg, limiter, log), log)
}

func newWebServer(
	cfg *config.Config,
	service inbound.RecipeService,
	api *apiserver.Server,
	metrics *monitoring.MetricsCollector,
	limiter *middleware.ClientLimiter,
	log *zap.Logger,
) (*webserver.WebServer, error) {
	var proxy http.Handler = webserver.NewProxy(cfg.Backend.BaseURL, cfg.Backend.Timeout, metrics, log)
	return webserver.NewWebServer(cfg, service, proxy, api.Handler(), metrics, limiter, log)
}

func registerLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	server *webserver.WebServer,
	limiter *middleware.ClientLimiter,
	repo outbound.CacheRepository,
	_ *monitoring.MeterProvider,
) {
	background, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if limiter != nil {
				go limiter.Run(background)
			}
			if local, ok := repo.(*cache.LocalCache); ok {
				go local.AutoCleanup(background, cacheCleanupEvery)
			}

			if err := server.Start(); err != nil {
				cancel()
				return fmt.Errorf("start web server: %w", err)
			}

			log.Info("FlavorBuddy started",
				zap.String("addr", cfg.ListenAddr()),
				zap.String("environment", cfg.App.Environment),
				zap.String("backend", cfg.Backend.BaseURL),
				zap.String("cache", cfg.Cache.Driver),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down FlavorBuddy")
			cancel()
			return server.Shutdown(ctx)
		},
	})
}
