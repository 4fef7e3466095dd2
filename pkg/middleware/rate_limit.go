package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/moodlens/moodlens/backend/session-service/pkg/metrics"
)

// getLimiter returns (and lazily creates) a token-bucket limiter for the given key
func getLimiter(store *sync.Map, key string, rps float64, burst int) *rate.Limiter {
	if v, ok := store.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := store.LoadOrStore(key, rate.NewLimiter(rate.Limit(rps), burst))
	return v.(*rate.Limiter)
}

// rateLimitKey prefers the restored session's user id (NAT-friendly per-user
// limiting) and falls back to the client IP.
func rateLimitKey(c *gin.Context) string {
	if sc, ok := SessionFromContext(c); ok && sc.UserID != "" {
		return "user:" + sc.UserID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var limiters sync.Map // map[string]*rate.Limiter
	return func(c *gin.Context) {
		lim := getLimiter(&limiters, rateLimitKey(c), rps, burst)
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
