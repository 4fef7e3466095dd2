package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps sessions in process memory. Used for local development
// and unit tests; records do not survive a restart.
type MemoryRepository struct {
	mu     sync.RWMutex
	byTok  map[string]*Session
	byUser map[string]map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byTok:  make(map[string]*Session),
		byUser: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryRepository) Insert(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byTok[s.Token]; ok {
		return ErrTokenCollision
	}
	cp := *s
	m.byTok[s.Token] = &cp
	toks, ok := m.byUser[s.UserID]
	if !ok {
		toks = make(map[string]struct{})
		m.byUser[s.UserID] = toks
	}
	toks[s.Token] = struct{}{}
	return nil
}

func (m *MemoryRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byTok[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) Touch(ctx context.Context, token string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byTok[token]
	if !ok {
		return ErrNotFound
	}
	if at.After(s.LastAccessed) {
		s.LastAccessed = at
	}
	return nil
}

func (m *MemoryRepository) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(token)
	return nil
}

func (m *MemoryRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for tok := range m.byUser[userID] {
		delete(m.byTok, tok)
		n++
	}
	delete(m.byUser, userID)
	return n, nil
}

func (m *MemoryRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.byUser[userID])), nil
}

func (m *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for tok, s := range m.byTok {
		if !s.ExpiresAt.After(now) {
			m.deleteLocked(tok)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (m *MemoryRepository) deleteLocked(token string) {
	s, ok := m.byTok[token]
	if !ok {
		return
	}
	delete(m.byTok, token)
	if toks, ok := m.byUser[s.UserID]; ok {
		delete(toks, token)
		if len(toks) == 0 {
			delete(m.byUser, s.UserID)
		}
	}
}
