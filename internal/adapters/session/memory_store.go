package session

import (
	"context"
	"sync"
	"time"

	"cmcs-claims/internal/core/domain"
)

type entry struct {
	session   domain.Session
	expiresAt time.Time
}

// MemoryStore is the in-process session store used when no Redis is
// configured. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Create stores the session with the given idle TTL
func (s *MemoryStore) Create(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &entry{session: *session, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get returns a live session
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session := e.session
	return &session, nil
}

// Touch restarts the idle timeout of a live session
func (s *MemoryStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return domain.ErrSessionNotFound
	}
	e.expiresAt = s.now().Add(ttl)
	return nil
}

// Delete removes a session
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// PurgeExpired drops idle-expired sessions and returns how many were dropped
func (s *MemoryStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// live must be called with mu held
func (s *MemoryStore) live(id string) (*entry, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, id)
		return nil, false
	}
	return e, true
}
