package mw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an idle client keeps its bucket.
const limiterIdleTTL = 10 * time.Minute

// IPRateLimiter keeps one token bucket per client IP. Buckets of clients
// that stay quiet for limiterIdleTTL are evicted.
type IPRateLimiter struct {
	ips *cache.Cache
	r   rate.Limit
	b   int
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: cache.New(limiterIdleTTL, limiterIdleTTL),
		r:   r,
		b:   b,
	}
}

// GetLimiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	if v, ok := i.ips.Get(ip); ok {
		i.ips.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(i.r, i.b)
	if err := i.ips.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := i.ips.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewIPRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}
