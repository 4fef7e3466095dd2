package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
)

// AssertionVerifier accepts HS256 JWTs minted by the in-house login service
// after it has checked the user's password.
type AssertionVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewAssertionVerifier(secret, issuer, audience string) (*AssertionVerifier, error) {
	if len(secret) < 32 {
		return nil, errors.New("assertion secret must be at least 32 bytes")
	}
	return &AssertionVerifier{secret: []byte(secret), issuer: issuer, audience: audience, now: time.Now}, nil
}

func (v *AssertionVerifier) Verify(ctx context.Context, raw string) (sessions.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return sessions.Identity{}, errors.Join(ErrRejected, err)
	}
	// assertions are short-lived handoffs; one without exp is never accepted
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return sessions.Identity{}, errors.Join(ErrRejected, errors.New("assertion has no exp"))
	}
	return FromClaims(claims)
}

// SignAssertion mints an assertion for id. Used by the login service and by tests.
func SignAssertion(secret, issuer, audience string, id sessions.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":                id.UserID,
		"preferred_username": id.Username,
		"email":              id.Email,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	if audience != "" {
		claims["aud"] = audience
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}
	return s, nil
}
