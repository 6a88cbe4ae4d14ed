package auth

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps a token bucket per client IP. This is a single-node
// approximation; a deployment spanning hosts would back this with a shared
// store.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	perMin  rate.Limit
	burst   int
}

// NewRateLimiter allows requestsPerMinute sustained requests per IP, with a
// burst of the same size.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		perMin:  rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   requestsPerMinute,
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.buckets[ip]
	if !ok {
		l = rate.NewLimiter(rl.perMin, rl.burst)
		rl.buckets[ip] = l
	}
	return l
}

// Middleware rejects requests over the per-IP budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(ClientIP(c)).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests. Please try again later."})
			c.Abort()
			return
		}
		c.Next()
	}
}
