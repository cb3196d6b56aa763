package middleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"golang.org/x/time/rate"
)

// ClientLimiter keeps one token bucket per client key
type ClientLimiter struct {
	limit   rate.Limit
	burst   int
	cleanup time.Duration
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter returns nil when rate limiting is disabled
func NewClientLimiter(cfg config.RateLimitConfig) *ClientLimiter {
	if !cfg.Enable || cfg.RequestsPerMin <= 0 {
		return nil
	}

	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}

	return &ClientLimiter{
		limit:   rate.Limit(float64(cfg.RequestsPerMin) / 60),
		burst:   burst,
		cleanup: cleanup,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

// Allow spends one token from key's bucket
func (l *ClientLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	bucket, ok := l.clients[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = bucket
	}
	bucket.lastSeen = now
	l.mu.Unlock()

	return bucket.limiter.AllowN(now, 1)
}

// RetryAfter is the Retry-After value, in seconds, for a rejected request
func (l *ClientLimiter) RetryAfter() string {
	seconds := int(math.Ceil(1 / float64(l.limit)))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

// Prune drops buckets idle for longer than the cleanup interval
func (l *ClientLimiter) Prune() int {
	cutoff := l.now().Add(-l.cleanup)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, bucket := range l.clients {
		if bucket.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Run prunes idle buckets until ctx is done
func (l *ClientLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}

// Handler applies the limiter to a net/http handler, keyed by the remote
// address. chi's RealIP middleware should run first.
func (l *ClientLimiter) Handler(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(remoteHost(r.RemoteAddr)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", l.RetryAfter())
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
