// Package apiserver provides the JSON API served under /api/v1
package apiserver

import (
	"net/http"
	"time"

	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"github.com/flavorbuddy/web/internal/infrastructure/http/middleware"
	"github.com/flavorbuddy/web/internal/infrastructure/monitoring"
	"github.com/flavorbuddy/web/internal/ports/inbound"
	"github.com/flavorbuddy/web/pkg/errors"
	"github.com/flavorbuddy/web/pkg/healthcheck"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// requestTimeout bounds a single API request, backend calls included
const requestTimeout = 60 * time.Second

// Server is the gin engine behind /api/v1 and the operational endpoints
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	engine   *gin.Engine
	service  inbound.RecipeService
	validate *validator.Validate
	health   *healthcheck.HealthCheck
	metrics  *monitoring.MetricsCollector
	docs     *OpenAPIHandler
}

// NewServer creates the JSON API. health and metrics may be nil.
func NewServer(
	cfg *config.Config,
	service inbound.RecipeService,
	health *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
	mw *middleware.Middleware,
	logger *zap.Logger,
) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		logger:   logger.Named("api"),
		engine:   gin.New(),
		service:  service,
		validate: newValidator(),
		health:   health,
		metrics:  metrics,
		docs:     NewOpenAPIHandler(logger),
	}

	s.setupRoutes(mw)
	return s
}

// Handler returns the engine as a net/http handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes(mw *middleware.Middleware) {
	s.engine.Use(
		mw.RequestID(),
		mw.Recovery(),
		mw.Logger(),
		mw.Tracing(),
		mw.CORS(),
		mw.Security(),
	)
	if s.metrics != nil {
		s.engine.Use(s.metrics.HTTPMiddleware())
	}

	s.setupOperationalRoutes()

	v1 := s.engine.Group("/api/v1")
	v1.Use(mw.RateLimit(), mw.Timeout(requestTimeout), mw.ErrorHandler())

	v1.GET("/openapi.yaml", s.docs.ServeOpenAPISpec)
	v1.GET("/openapi", s.docs.ServeOpenAPIInfo)
	v1.GET("/docs", s.docs.ServeSwaggerUI)

	v1.POST("/normalize", s.normalize)
	v1.GET("/recipe", s.parseRecipeURL)
	v1.POST("/convert", s.convert)
	v1.GET("/recipes", s.listRecipes)
	v1.GET("/favorites", s.listFavorites)

	recipes := v1.Group("/recipes/:id")
	recipes.GET("", s.getRecipe)
	recipes.GET("/related", s.relatedRecipes)
	recipes.POST("/like", s.vote(inbound.ActionLike))
	recipes.POST("/dislike", s.vote(inbound.ActionDislike))
	recipes.POST("/favorite", s.favorite)
	recipes.DELETE("", s.deleteRecipe)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound,
			errors.ToErrorResponse(errors.NewNotFoundError("route"), c.GetString(middleware.RequestIDKey)))
	})
}

func (s *Server) setupOperationalRoutes() {
	mon := s.config.Monitoring

	if s.health != nil {
		if mon.HealthCheckPath != "" {
			s.engine.GET(mon.HealthCheckPath, s.health.Handler())
		}
		if mon.ReadinessPath != "" {
			s.engine.GET(mon.ReadinessPath, s.health.ReadinessHandler())
		}
		s.engine.GET("/live", s.health.LivenessHandler())
	}

	if s.metrics != nil && mon.EnableMetrics {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}
