package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"clubhub/client/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository keeps refresh sessions keyed by the hash of their
// refresh token.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.RefreshSession
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]models.RefreshSession)}
}

func (r *SessionRepository) Create(_ context.Context, session models.RefreshSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[string(session.RefreshTokenHash)] = session
	return nil
}

func (r *SessionRepository) FindByRefreshHash(_ context.Context, hash []byte) (models.RefreshSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[string(hash)]
	if !ok {
		return models.RefreshSession{}, ErrSessionNotFound
	}
	return session, nil
}

// TakeByRefreshHash removes the session and returns it, so only one caller
// can consume a refresh token.
func (r *SessionRepository) TakeByRefreshHash(_ context.Context, hash []byte) (models.RefreshSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[string(hash)]
	if !ok {
		return models.RefreshSession{}, ErrSessionNotFound
	}
	delete(r.sessions, string(hash))
	return session, nil
}

func (r *SessionRepository) Delete(_ context.Context, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[string(hash)]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, string(hash))
	return nil
}

func (r *SessionRepository) DeleteByUser(_ context.Context, userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, k)
			n++
		}
	}
	return n
}

func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.sessions, k)
			n++
		}
	}
	return n
}
