package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moodlens/moodlens/backend/session-service/internal/clientcache"
	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
)

// Gin context keys set by the session middlewares.
const (
	ContextKeySession = "session"
	ContextKeyToken   = "session_token"

	// ContextKeyRestored marks that a restore already ran for this request, whatever its outcome.
	ContextKeyRestored = "session_restored"
)

// Restorer is the part of sessions.Service the middlewares depend on.
type Restorer interface {
	Restore(ctx context.Context, cc sessions.ClientCache) (*sessions.SessionContext, string, error)
}

// OptionalSession restores the session when the request carries a valid
// token and continues either way. Downstream middlewares (rate limiting) and
// handlers read it with SessionFromContext.
func OptionalSession(svc Restorer, urlParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		restore(c, svc, urlParam)
		c.Next()
	}
}

// RequireSession aborts with 401 unless the request carries a valid session token.
// The client cache is cleared on failure and re-armed on success.
func RequireSession(svc Restorer, urlParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := RestoreOnce(c, svc, urlParam); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Next()
	}
}

// RestoreOnce returns the session of this request, validating the token only
// if no middleware has done so yet. A failed earlier attempt is not repeated.
func RestoreOnce(c *gin.Context, svc Restorer, urlParam string) (*sessions.SessionContext, bool) {
	if sc, ok := SessionFromContext(c); ok {
		return sc, true
	}
	if c.GetBool(ContextKeyRestored) {
		return nil, false
	}
	if !restore(c, svc, urlParam) {
		return nil, false
	}
	return SessionFromContext(c)
}

func restore(c *gin.Context, svc Restorer, urlParam string) bool {
	c.Set(ContextKeyRestored, true)
	sc, tok, err := svc.Restore(c.Request.Context(), clientcache.FromGin(c, urlParam))
	if err != nil {
		return false
	}
	c.Set(ContextKeySession, sc)
	c.Set(ContextKeyToken, tok)
	return true
}

// SessionFromContext returns the session restored for this request, if any.
func SessionFromContext(c *gin.Context) (*sessions.SessionContext, bool) {
	v, ok := c.Get(ContextKeySession)
	if !ok {
		return nil, false
	}
	sc, ok := v.(*sessions.SessionContext)
	return sc, ok && sc != nil
}

// TokenFromContext returns the validated session token for this request, if any.
func TokenFromContext(c *gin.Context) (string, bool) {
	tok := c.GetString(ContextKeyToken)
	return tok, tok != ""
}
