package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"clubhub/client/internal/models"
)

var (
	ErrCodeNotFound = errors.New("verification code not found")
	ErrCodeMismatch = errors.New("verification code does not match")
	ErrCodeExpired  = errors.New("verification code expired")
)

// CodeRepository holds one outstanding verification code per user.
type CodeRepository struct {
	mu    sync.Mutex
	codes map[string]models.VerificationCode
}

func NewCodeRepository() *CodeRepository {
	return &CodeRepository{codes: make(map[string]models.VerificationCode)}
}

func (r *CodeRepository) Put(_ context.Context, code models.VerificationCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.UserID] = code
}

func (r *CodeRepository) Peek(_ context.Context, userID string) (models.VerificationCode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[userID]
	return code, ok
}

// Consume checks code and removes it when it matches.
func (r *CodeRepository) Consume(_ context.Context, userID, code string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.codes[userID]
	if !ok {
		return ErrCodeNotFound
	}
	if !stored.ExpiresAt.After(now) {
		delete(r.codes, userID)
		return ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(stored.Code), []byte(code)) != 1 {
		return ErrCodeMismatch
	}
	delete(r.codes, userID)
	return nil
}

func (r *CodeRepository) DeleteExpired(_ context.Context, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, c := range r.codes {
		if !c.ExpiresAt.After(now) {
			delete(r.codes, k)
			n++
		}
	}
	return n
}
