package sessions

import "errors"

var (
	// ErrNotFound is returned when no session exists for a token.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a session exists but is past its expiry.
	ErrExpired = errors.New("session has expired")
	// ErrStoreUnavailable wraps any persistence failure.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrTokenCollision is returned when a generated token is already in use.
	ErrTokenCollision = errors.New("session token collision")
	// ErrMalformedToken is returned for candidate tokens that cannot have been generated by us.
	ErrMalformedToken = errors.New("malformed session token")
	// ErrUnauthenticated is the only failure ValidateSession reports to callers.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidIdentity is returned when the identity provider hands over no user id.
	ErrInvalidIdentity = errors.New("identity requires a user id")
	// ErrInvalidExpiry is returned for a non-positive expiry duration.
	ErrInvalidExpiry = errors.New("expiry duration must be positive")
	// ErrIncompleteRevocation is returned when sessions remain after a bulk delete.
	ErrIncompleteRevocation = errors.New("not all sessions were revoked")
)
