package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/acl-rts-tracker/internal/domain"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

// NewRateLimiter creates a limiter allowing rps requests per second per client.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clients: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether the client may make a request now.
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	limiter, ok := l.clients.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients.Add(client, limiter)
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// RateLimit rejects requests beyond the configured per-client rate with 429.
func RateLimit(cfg domain.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
				domain.ErrCodeRateLimit, "too many requests", "", GetCorrelationID(c)))
			return
		}
		c.Next()
	}
}
