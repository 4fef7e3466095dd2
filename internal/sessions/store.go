package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moodlens/moodlens/backend/session-service/internal/tokens"
	"github.com/moodlens/moodlens/backend/session-service/pkg/logger"
	"github.com/moodlens/moodlens/backend/session-service/pkg/metrics"
)

const (
	// createAttempts bounds token generation on collision. A second collision is fatal.
	createAttempts = 2
	// revokeAttempts bounds DeleteAllForUser passes.
	revokeAttempts = 3
)

// Store is the authoritative session store. It owns the expiry policy on top
// of a Repository backend: every read re-checks expires_at, so correctness
// never depends on the backend's TTL support or on the sweeper.
type Store struct {
	repo Repository
	gen  tokens.Generator
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now. Used for simulated time in tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithGenerator replaces the crypto/rand token generator.
func WithGenerator(g tokens.Generator) StoreOption {
	return func(s *Store) { s.gen = g }
}

func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{repo: repo, gen: tokens.NewGenerator(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock is the current time at the millisecond resolution every backend stores.
func (s *Store) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Create persists a new session for id that expires ttl from now.
func (s *Store) Create(ctx context.Context, id Identity, ttl time.Duration) (*Session, error) {
	if id.UserID == "" {
		return nil, ErrInvalidIdentity
	}
	if ttl <= 0 {
		return nil, ErrInvalidExpiry
	}
	for attempt := 1; attempt <= createAttempts; attempt++ {
		tok, err := s.gen.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate session token: %w", err)
		}
		now := s.clock()
		sess := &Session{
			ID:           uuid.NewString(),
			Token:        tok,
			UserID:       id.UserID,
			Username:     id.Username,
			Email:        id.Email,
			CreatedAt:    now,
			ExpiresAt:    now.Add(ttl),
			LastAccessed: now,
		}
		err = s.repo.Insert(ctx, sess)
		if err == nil {
			return sess, nil
		}
		if errors.Is(err, ErrTokenCollision) {
			metrics.SessionTokenCollisions.Inc()
			logger.Errorf("sessions: token collision on create (user=%s attempt=%d/%d)", id.UserID, attempt, createAttempts)
			continue
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return nil, fmt.Errorf("%w: generator repeated an existing token", ErrTokenCollision)
}

// Get looks up a live session and records the access. Expired records are
// deleted on the spot and reported as ErrExpired.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	if !tokens.Valid(token) {
		return nil, ErrMalformedToken
	}
	sess, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	// expiry is judged at full clock resolution; only persisted values are truncated
	if sess.Expired(s.now()) {
		if err := s.repo.DeleteByToken(ctx, token); err != nil {
			logger.Warnf("sessions: failed to purge expired session %s: %v", sess.ID, err)
		} else {
			metrics.SessionsRevoked.WithLabelValues("expired").Inc()
		}
		return nil, ErrExpired
	}
	now := s.clock()
	// the touch is informational; losing it (client gone, backend hiccup) is fine
	if err := s.repo.Touch(ctx, token, now); err != nil {
		logger.Debugf("sessions: touch failed for session %s: %v", sess.ID, err)
	} else if now.After(sess.LastAccessed) {
		sess.LastAccessed = now
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.repo.DeleteByToken(ctx, token); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every session of userID, repeating the bulk delete
// until none remain. It never reports success while records are left.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	var lastErr error
	for attempt := 1; attempt <= revokeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.repo.DeleteByUser(ctx, userID)
		total += n
		if err != nil {
			lastErr = err
			logger.Warnf("sessions: bulk delete for user %s failed (attempt %d/%d): %v", userID, attempt, revokeAttempts, err)
			continue
		}
		left, err := s.repo.CountByUser(ctx, userID)
		if err != nil {
			lastErr = err
			continue
		}
		if left == 0 {
			return total, nil
		}
		lastErr = fmt.Errorf("%d sessions remain", left)
	}
	if lastErr != nil {
		return total, errors.Join(ErrIncompleteRevocation, lastErr)
	}
	return total, ErrIncompleteRevocation
}

// Sweep removes every record that is already past expiry.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock())
	if err != nil {
		return n, errors.Join(ErrStoreUnavailable, err)
	}
	return n, nil
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
