// Package memory provides in-process implementations of the session store
// and the student gateway.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ege-hub/ege-scores-bot/internal/domain/dialogue"
	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

// SessionStore keeps dialogue sessions in a map for the process lifetime.
// Sessions idle for longer than the configured timeout are treated as absent.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[student.UserID]dialogue.Session
	idleTimeout time.Duration
	now         func() time.Time
}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		s.now = now
	}
}

// NewSessionStore creates an in-memory store. A zero idleTimeout disables expiry.
func NewSessionStore(idleTimeout time.Duration, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		sessions:    make(map[student.UserID]dialogue.Session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the user's session. An expired session is removed.
func (s *SessionStore) Get(_ context.Context, userID student.UserID) (dialogue.Session, bool, error) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()

	if !ok {
		return dialogue.Session{}, false, nil
	}

	if sess.ExpiredAt(s.now(), s.idleTimeout) {
		s.mu.Lock()
		// Re-check under the write lock: a concurrent Save may have refreshed it.
		if cur, ok := s.sessions[userID]; ok && cur.ExpiredAt(s.now(), s.idleTimeout) {
			delete(s.sessions, userID)
		}
		s.mu.Unlock()
		return dialogue.Session{}, false, nil
	}

	return sess, true, nil
}

// Save replaces the user's session.
func (s *SessionStore) Save(_ context.Context, session dialogue.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.UserID] = session
	return nil
}

// Clear removes the user's session.
func (s *SessionStore) Clear(_ context.Context, userID student.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

// Sweep removes every expired session and returns how many were dropped.
func (s *SessionStore) Sweep(_ context.Context) (int, error) {
	if s.idleTimeout <= 0 {
		return 0, nil
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.ExpiredAt(now, s.idleTimeout) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
