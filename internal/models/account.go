package models

import "time"

// Account is a user as the dev server stores it.
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         UserRole
	Major        string
	Verified     bool
	CreatedAt    time.Time
}

type RefreshSession struct {
	ID               string
	UserID           string
	RefreshTokenHash []byte
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

type VerificationCode struct {
	UserID    string
	Code      string
	ExpiresAt time.Time
}
