package cache

import (
	"fmt"

	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"github.com/flavorbuddy/web/internal/ports/outbound"
	"github.com/flavorbuddy/web/pkg/healthcheck"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache drivers.
const (
	DriverLocal = "local"
	DriverRedis = "redis"
	DriverNone  = "none"
)

// New returns the repository selected by cfg.Driver. The "none" driver
// returns nil, which the application treats as caching disabled. client is
// only used by the redis driver.
func New(cfg *config.Config, client redis.UniversalClient, logger *zap.Logger) (outbound.CacheRepository, error) {
	switch cfg.Cache.Driver {
	case DriverLocal, "":
		logger.Info("Using local cache", zap.Int("max_entries", cfg.Cache.MaxEntries))
		return NewLocalCache(cfg.Cache.MaxEntries), nil
	case DriverRedis:
		if client == nil {
			return nil, fmt.Errorf("cache driver redis needs a redis client")
		}
		breaker := healthcheck.NewCircuitBreaker("redis", healthcheck.CircuitBreakerConfig{
			FailureThreshold: 5,
			IsFailure:        IsRedisFailure,
		})
		logger.Info("Using redis cache", zap.String("prefix", cfg.Redis.KeyPrefix))
		return NewRedisCache(client, cfg.Redis.KeyPrefix, breaker, logger), nil
	case DriverNone:
		logger.Info("Parse result cache disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
