package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"github.com/flavorbuddy/web/internal/ports/outbound"
	"github.com/flavorbuddy/web/pkg/healthcheck"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient builds a standalone or cluster client from cfg and checks
// that it answers.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (redis.UniversalClient, error) {
	opts := &redis.UniversalOptions{
		Addrs:        []string{cfg.Addr()},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if cfg.EnableCluster && len(cfg.ClusterNodes) > 0 {
		opts.Addrs = cfg.ClusterNodes
		logger.Info("Redis cluster mode enabled", zap.Strings("nodes", cfg.ClusterNodes))
	}

	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis client initialized",
		zap.Strings("addrs", opts.Addrs),
		zap.Int("database", cfg.Database),
		zap.Bool("cluster_enabled", cfg.EnableCluster),
	)
	return client, nil
}

// RedisCache stores cache entries in Redis under a key prefix. Calls are
// skipped while the breaker is open so a dead Redis costs nothing per request.
type RedisCache struct {
	client  redis.UniversalClient
	prefix  string
	breaker *healthcheck.CircuitBreaker
	logger  *zap.Logger
}

var _ outbound.CacheRepository = (*RedisCache)(nil)

// NewRedisCache wraps client. breaker may be nil.
func NewRedisCache(client redis.UniversalClient, prefix string, breaker *healthcheck.CircuitBreaker, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client:  client,
		prefix:  prefix,
		breaker: breaker,
		logger:  logger.Named("redis-cache"),
	}
}

// Get returns the value at key or outbound.ErrCacheMiss
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.guard(func() error {
		var err error
		value, err = r.client.Get(ctx, r.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return outbound.ErrCacheMiss
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value for ttl
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.guard(func() error {
		return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
	})
}

// Delete removes key
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.guard(func() error {
		return r.client.Del(ctx, r.prefix+key).Err()
	})
}

func (r *RedisCache) guard(fn func() error) error {
	if r.breaker == nil {
		return fn()
	}
	err := r.breaker.Execute(fn)
	if errors.Is(err, healthcheck.ErrCircuitOpen) {
		r.logger.Debug("Redis circuit open, skipping cache")
	}
	return err
}

// IsRedisFailure reports whether err says something about Redis health.
// Misses and cancellations do not.
func IsRedisFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, outbound.ErrCacheMiss) &&
		!errors.Is(err, context.Canceled)
}
