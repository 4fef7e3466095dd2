package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moodlens/moodlens/backend/session-service/internal/clientcache"
	"github.com/moodlens/moodlens/backend/session-service/internal/config"
	"github.com/moodlens/moodlens/backend/session-service/internal/identity"
	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
	"github.com/moodlens/moodlens/backend/session-service/pkg/logger"
	"github.com/moodlens/moodlens/backend/session-service/pkg/middleware"
)

// LoginRequest is posted by the login page once the identity provider has
// authenticated the user.
type LoginRequest struct {
	Mode        string `json:"mode" binding:"required"` // "assertion" | "auth_code"
	Assertion   string `json:"assertion"`
	Code        string `json:"code"`         // authorization code
	RedirectURI string `json:"redirect_uri"` // redirect uri used in auth code flow
	ExpiresIn   int64  `json:"expires_in"`   // seconds; 0 selects the default expiry
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token     string            `json:"token"`
	User      sessions.Identity `json:"user"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg        *config.Config
	sessions   *sessions.Service
	assertions identity.Verifier
	codes      identity.CodeExchanger
}

// NewAuthHandler wires the session service to the identity verifiers. Either
// verifier may be nil, which disables that login mode.
func NewAuthHandler(cfg *config.Config, s *sessions.Service, assertions identity.Verifier, codes identity.CodeExchanger) *AuthHandler {
	return &AuthHandler{cfg: cfg, sessions: s, assertions: assertions, codes: codes}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.GET("/session", h.Session)
	a.POST("/logout", h.Logout)
	a.POST("/logout-all", middleware.RequireSession(h.sessions, h.urlParam()), h.LogoutAll)
}

// RegisterAPI registers the protected API routes.
func (h *AuthHandler) RegisterAPI(rg *gin.RouterGroup) {
	rg.GET("/me", middleware.RequireSession(h.sessions, h.urlParam()), h.Me)
}

func (h *AuthHandler) urlParam() string { return h.cfg.Session.URLParam }

func (h *AuthHandler) cache(c *gin.Context) *clientcache.HTTP {
	return clientcache.FromGin(c, h.urlParam())
}

// Login verifies the identity proof and opens a session for it.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ttl := time.Duration(req.ExpiresIn) * time.Second
	if req.ExpiresIn < 0 || ttl > h.cfg.Session.MaxExpiry {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expires_in out of range"})
		return
	}

	var (
		id  sessions.Identity
		err error
	)
	switch req.Mode {
	case "assertion":
		if h.assertions == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "assertion login not configured"})
			return
		}
		if req.Assertion == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "assertion required for assertion mode"})
			return
		}
		id, err = h.assertions.Verify(c.Request.Context(), req.Assertion)
	case "auth_code":
		if h.codes == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Keycloak not configured"})
			return
		}
		if req.Code == "" || req.RedirectURI == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code and redirect_uri required for auth_code mode"})
			return
		}
		id, err = h.codes.Exchange(c.Request.Context(), req.Code, req.RedirectURI)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported mode"})
		return
	}
	if err != nil {
		logger.Infof("login (%s) rejected: %v", req.Mode, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	sess, err := h.sessions.CreateSessionRecord(c.Request.Context(), h.cache(c), id, ttl)
	if err != nil {
		switch {
		case errors.Is(err, sessions.ErrInvalidIdentity), errors.Is(err, sessions.ErrInvalidExpiry):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, sessions.ErrStoreUnavailable):
			logger.Errorf("failed to create session: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		default:
			logger.Errorf("failed to create session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		}
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Token:     sess.Token,
		User:      id,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Session returns the context of the session carried by the request. A
// session already restored by a global middleware is reused.
func (h *AuthHandler) Session(c *gin.Context) {
	sc, ok := middleware.RestoreOnce(c, h.sessions, h.urlParam())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": sc})
}

// Logout revokes the token carried by the request. It succeeds for callers
// without a session so clients can always reach a clean state.
func (h *AuthHandler) Logout(c *gin.Context) {
	cc := h.cache(c)
	tok, _ := cc.ResolveCandidateToken()
	if err := h.sessions.Logout(c.Request.Context(), cc, tok); err != nil {
		logger.Errorf("logout failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// LogoutAll revokes every session of the authenticated user.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	sc, _ := middleware.SessionFromContext(c)
	if err := h.sessions.LogoutAllDevices(c.Request.Context(), h.cache(c), sc.UserID); err != nil {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "revocation incomplete, retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out on all devices"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	sc, _ := middleware.SessionFromContext(c)
	c.JSON(http.StatusOK, gin.H{"user": sc})
}
