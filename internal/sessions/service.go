package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/moodlens/moodlens/backend/session-service/internal/tokens"
	"github.com/moodlens/moodlens/backend/session-service/pkg/logger"
	"github.com/moodlens/moodlens/backend/session-service/pkg/metrics"
)

// DefaultExpiry is used when CreateSession is called without an expiry.
const DefaultExpiry = 30 * 24 * time.Hour

// ClientCache carries the session token between page loads without cookies.
// It has a one-shot URL channel and a durable key-value slot.
type ClientCache interface {
	// ResolveCandidateToken returns the URL token if present, else the cached one.
	ResolveCandidateToken() (string, bool)
	// Persist writes token to the durable slot and to the URL of the current navigation.
	Persist(token string)
	// Clear drops the token from both channels.
	Clear()
	// ScrubURL removes the token from the visible URL, keeping the durable slot.
	ScrubURL()
}

// Service is the entry point for the identity provider and request handling.
type Service struct {
	store      *Store
	defaultTTL time.Duration
}

func NewService(store *Store, defaultTTL time.Duration) *Service {
	if defaultTTL <= 0 {
		defaultTTL = DefaultExpiry
	}
	return &Service{store: store, defaultTTL: defaultTTL}
}

// Store exposes the underlying store (readiness checks, sweeper wiring).
func (s *Service) Store() *Store { return s.store }

// CreateSession opens a session for id and hands the token to the client cache.
// A zero ttl selects the service default.
func (s *Service) CreateSession(ctx context.Context, cc ClientCache, id Identity, ttl time.Duration) (string, error) {
	sess, err := s.CreateSessionRecord(ctx, cc, id, ttl)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// CreateSessionRecord is CreateSession returning the full record.
func (s *Service) CreateSessionRecord(ctx context.Context, cc ClientCache, id Identity, ttl time.Duration) (*Session, error) {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	sess, err := s.store.Create(ctx, id, ttl)
	if err != nil {
		return nil, err
	}
	metrics.SessionsCreated.Inc()
	logger.Infof("session %s created for user %s (expires %s)", sess.ID, sess.UserID, sess.ExpiresAt.Format(time.RFC3339))
	cc.Persist(sess.Token)
	return sess, nil
}

// ValidateSession checks candidate against the store. Any failure, including an
// unreachable store, yields ErrUnauthenticated and clears the client cache.
func (s *Service) ValidateSession(ctx context.Context, cc ClientCache, candidate string) (*SessionContext, error) {
	if candidate == "" {
		metrics.SessionValidations.WithLabelValues("absent").Inc()
		return nil, ErrUnauthenticated
	}
	sess, err := s.store.Get(ctx, candidate)
	if err != nil {
		reason := failureReason(err)
		metrics.SessionValidations.WithLabelValues(reason).Inc()
		if reason == "store_unavailable" {
			logger.Warnf("session validation failed closed: %v", err)
		} else {
			logger.Debugf("session validation rejected: %s", reason)
		}
		cc.Clear()
		return nil, ErrUnauthenticated
	}
	metrics.SessionValidations.WithLabelValues("ok").Inc()
	cc.Persist(sess.Token)
	cc.ScrubURL()
	ctxOut := sess.Context()
	return &ctxOut, nil
}

// Restore resolves the candidate token from the client cache and validates it.
func (s *Service) Restore(ctx context.Context, cc ClientCache) (*SessionContext, string, error) {
	tok, ok := cc.ResolveCandidateToken()
	if !ok {
		tok = ""
	}
	sc, err := s.ValidateSession(ctx, cc, tok)
	if err != nil {
		return nil, "", err
	}
	return sc, tok, nil
}

// Logout revokes a single session and clears the client cache. Unknown or
// malformed tokens are a no-op. If the store fails the client keeps its token
// so the logout can be retried.
func (s *Service) Logout(ctx context.Context, cc ClientCache, token string) error {
	if tokens.Valid(token) {
		if err := s.store.Delete(ctx, token); err != nil {
			return err
		}
		metrics.SessionsRevoked.WithLabelValues("logout").Inc()
	}
	cc.Clear()
	return nil
}

// LogoutAllDevices revokes every session of userID. Other devices find out on
// their next validation. An ErrIncompleteRevocation result should be retried;
// the client cache is left intact until the revocation completes.
func (s *Service) LogoutAllDevices(ctx context.Context, cc ClientCache, userID string) error {
	n, err := s.store.DeleteAllForUser(ctx, userID)
	if n > 0 {
		metrics.SessionsRevoked.WithLabelValues("logout_all").Add(float64(n))
	}
	if err != nil {
		logger.Errorf("logout-all for user %s incomplete after removing %d sessions: %v", userID, n, err)
		return err
	}
	cc.Clear()
	logger.Infof("logout-all for user %s removed %d sessions", userID, n)
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	default:
		return "store_unavailable"
	}
}
