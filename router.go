package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moodlens/moodlens/backend/session-service/handlers"
	"github.com/moodlens/moodlens/backend/session-service/internal/clientcache"
	"github.com/moodlens/moodlens/backend/session-service/internal/config"
	"github.com/moodlens/moodlens/backend/session-service/internal/identity"
	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
	"github.com/moodlens/moodlens/backend/session-service/pkg/middleware"
)

var startTime = time.Now()

// newRouter builds the gin engine: global middlewares, health checks, the auth
// routes and the metrics endpoint.
func newRouter(cfg *config.Config, svc *sessions.Service, be *backend, assertions identity.Verifier, codes identity.CodeExchanger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID(), cors())
	if cfg.RateLimit.Enabled {
		// the limiter keys on the user, so the session is restored first
		r.Use(middleware.OptionalSession(svc, cfg.Session.URLParam))
		if cfg.RateLimit.UseRedis && be.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(be.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	// ready only when the session store answers
	r.GET("/ready", func(c *gin.Context) {
		pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps := map[string]bool{"storage": svc.Store().Ping(pctx) == nil}
		if be.redis != nil {
			deps["redis"] = be.redis.Ping(pctx).Err() == nil
		}
		ready := true
		for _, ok := range deps {
			ready = ready && ok
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	h := handlers.NewAuthHandler(cfg, svc, assertions, codes)
	h.Register(r.Group("/"))
	h.RegisterAPI(r.Group("/api/v1"))
	handlers.RegisterSwagger(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// cors lets the browser client read the session protocol headers.
func cors() gin.HandlerFunc {
	allowHeaders := strings.Join([]string{"Origin", "Content-Type", "Accept", clientcache.HeaderToken, middleware.HeaderRequestID}, ", ")
	exposeHeaders := strings.Join(append([]string{"Content-Length", middleware.HeaderRequestID}, clientcache.ExposedHeaders...), ", ")
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		c.Writer.Header().Set("Access-Control-Expose-Headers", exposeHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
