package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/moodlens/moodlens/backend/session-service/internal/config"
	"github.com/moodlens/moodlens/backend/session-service/internal/identity"
	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
	"github.com/moodlens/moodlens/backend/session-service/internal/tokens"
	"github.com/moodlens/moodlens/backend/session-service/pkg/logger"
	"github.com/moodlens/moodlens/backend/session-service/pkg/metrics"
)

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.InitWithEnvironment(os.Getenv("LOG_LEVEL"), cfg.Server.Environment)
	logger.Infof("config loaded: store=%s keycloak=%v assertion=%v rate_limit=%v", cfg.Session.Store, cfg.Keycloak.URL != "", cfg.Assertion.Secret != "", cfg.RateLimit.Enabled)

	// without a working secure random source no session may be issued
	if err := tokens.SelfTest(tokens.NewGenerator()); err != nil {
		logger.Fatalf("token generator self-test failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatalf("session store: %v", err)
	}
	defer be.close()

	store := sessions.NewStore(be.repo)
	sessionsSvc := sessions.NewService(store, cfg.Session.Expiry)
	go sessions.NewSweeper(store, cfg.Session.SweepInterval).Run(ctx)

	assertions, codes := identityProviders(ctx, cfg)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, sessionsSvc, be, assertions, codes)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Starting session service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// identityProviders builds the verifiers for the enabled login modes.
func identityProviders(ctx context.Context, cfg *config.Config) (identity.Verifier, identity.CodeExchanger) {
	var assertions identity.Verifier
	var codes identity.CodeExchanger

	if cfg.Assertion.Secret != "" {
		av, err := identity.NewAssertionVerifier(cfg.Assertion.Secret, cfg.Assertion.Issuer, cfg.Assertion.Audience)
		if err != nil {
			logger.Fatalf("assertion verifier: %v", err)
		}
		assertions = av
	} else if cfg.Keycloak.AllowInsecure {
		// integration runs only: claims are read without signature verification
		logger.Warnf("enabling insecure identity verifier (integration mode)")
		assertions = identity.NewInsecureVerifier()
	}

	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		issuer := identity.KeycloakIssuer(cfg.Keycloak.URL, cfg.Keycloak.Realm)
		ov, err := identity.NewOIDCVerifier(ctx, issuer, cfg.Keycloak.ClientID, cfg.Keycloak.ClientSecret)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			codes = ov
		}
	}
	if assertions == nil && codes == nil {
		logger.Warnf("no identity provider configured: /auth/login will reject every request")
	}
	return assertions, codes
}
