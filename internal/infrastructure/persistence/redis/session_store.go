package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ege-hub/ege-scores-bot/internal/domain/dialogue"
	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

// SessionStore keeps dialogue sessions in Redis. Every Save rewrites the key
// with the idle timeout as TTL, so abandoned sessions expire on their own.
type SessionStore struct {
	cache       *Cache
	idleTimeout time.Duration
}

// NewSessionStore creates a session store. A zero idleTimeout disables expiry.
func NewSessionStore(cache *Cache, idleTimeout time.Duration) *SessionStore {
	return &SessionStore{
		cache:       cache,
		idleTimeout: idleTimeout,
	}
}

// Get returns the user's session if it exists.
func (s *SessionStore) Get(ctx context.Context, userID student.UserID) (dialogue.Session, bool, error) {
	var sess dialogue.Session
	err := s.cache.Get(ctx, SessionKey(userID.String()), &sess)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return dialogue.Session{}, false, nil
		}
		return dialogue.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	return sess, true, nil
}

// Save replaces the user's session and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, session dialogue.Session) error {
	if err := s.cache.Set(ctx, SessionKey(session.UserID.String()), session, s.idleTimeout); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the user's session.
func (s *SessionStore) Clear(ctx context.Context, userID student.UserID) error {
	if err := s.cache.Delete(ctx, SessionKey(userID.String())); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}
