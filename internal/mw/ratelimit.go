package mw

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// clientIdleTimeout is how long a client's limiter is kept after its last
// request.
const clientIdleTimeout = 10 * time.Minute

// ClientLimiter hands out one token bucket per client IP. Buckets of idle
// clients expire so the set does not grow without bound.
type ClientLimiter struct {
	limiters *cache.Cache
	r        rate.Limit
	b        int
}

// NewClientLimiter creates a limiter allowing r requests per second with
// bursts of b for every client.
func NewClientLimiter(r rate.Limit, b int) *ClientLimiter {
	return &ClientLimiter{
		limiters: cache.New(clientIdleTimeout, clientIdleTimeout),
		r:        r,
		b:        b,
	}
}

// Limiter returns the bucket for ip, creating it on first use.
func (l *ClientLimiter) Limiter(ip string) *rate.Limiter {
	if v, ok := l.limiters.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		l.limiters.SetDefault(ip, limiter)
		return limiter
	}
	limiter := rate.NewLimiter(l.r, l.b)
	if err := l.limiters.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := l.limiters.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// retryAfter is the whole number of seconds until the next token.
func (l *ClientLimiter) retryAfter() int {
	if l.r <= 0 {
		return 1
	}
	return int(math.Ceil(1 / float64(l.r)))
}

// RateLimiter rejects clients exceeding their bucket with 429.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewClientLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.Limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", strconv.Itoa(limiter.retryAfter()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
