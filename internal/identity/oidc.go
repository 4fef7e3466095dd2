package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
	"github.com/moodlens/moodlens/backend/session-service/pkg/logger"
)

// OIDCVerifier verifies Keycloak ID tokens and redeems authorization codes.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
}

// KeycloakIssuer builds the realm issuer URL from the base URL and realm.
// An empty realm means url already is the issuer (older deployments expose the realm path there).
func KeycloakIssuer(url, realm string) string {
	if realm == "" {
		return url
	}
	return strings.TrimRight(url, "/") + "/realms/" + realm
}

// NewOIDCVerifier discovers the provider at issuer.
func NewOIDCVerifier(ctx context.Context, issuer, clientID, clientSecret string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return newOIDCVerifier(provider.Verifier(&oidc.Config{ClientID: clientID}), provider.Endpoint(), clientID, clientSecret), nil
}

func newOIDCVerifier(v *oidc.IDTokenVerifier, endpoint oauth2.Endpoint, clientID, clientSecret string) *OIDCVerifier {
	return &OIDCVerifier{
		verifier: v,
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}
}

// Verify checks a raw ID token and maps its claims.
func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (sessions.Identity, error) {
	idt, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return sessions.Identity{}, errors.Join(ErrRejected, err)
	}
	var claims map[string]interface{}
	if err := idt.Claims(&claims); err != nil {
		return sessions.Identity{}, errors.Join(ErrRejected, err)
	}
	return FromClaims(claims)
}

// Exchange redeems code at the token endpoint and verifies the returned ID token.
func (v *OIDCVerifier) Exchange(ctx context.Context, code, redirectURI string) (sessions.Identity, error) {
	if code == "" || redirectURI == "" {
		return sessions.Identity{}, errors.Join(ErrRejected, errors.New("code and redirect_uri required"))
	}
	cfg := v.oauth
	cfg.RedirectURL = redirectURI
	logger.Debugf("oidc: exchanging code (len=%d) redirect_uri=%s", len(code), redirectURI)
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		logger.Warnf("oidc: auth-code token exchange error (redirect_uri=%q): %v", redirectURI, err)
		return sessions.Identity{}, errors.Join(ErrRejected, err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return sessions.Identity{}, errors.Join(ErrRejected, errors.New("token response has no id_token"))
	}
	return v.Verify(ctx, raw)
}
