// Package identity is the inbound boundary of the session core: it turns a
// credential proof from an identity provider into a sessions.Identity.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
)

// ErrRejected is returned when a credential proof does not authenticate anyone.
var ErrRejected = errors.New("identity rejected")

// Verifier validates a signed identity statement (assertion or ID token).
type Verifier interface {
	Verify(ctx context.Context, raw string) (sessions.Identity, error)
}

// CodeExchanger redeems an OAuth2 authorization code for an identity.
type CodeExchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (sessions.Identity, error)
}

// FromClaims maps standard OIDC claims onto an Identity. The subject is
// required; username falls back through preferred_username, username and name.
func FromClaims(claims map[string]interface{}) (sessions.Identity, error) {
	sub := claimString(claims, "sub")
	if sub == "" {
		return sessions.Identity{}, errors.Join(ErrRejected, errors.New("claims missing sub"))
	}
	username := claimString(claims, "preferred_username")
	if username == "" {
		username = claimString(claims, "username")
	}
	if username == "" {
		username = claimString(claims, "name")
	}
	return sessions.Identity{
		UserID:   sub,
		Username: username,
		Email:    claimString(claims, "email"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return strings.TrimSpace(v)
}
