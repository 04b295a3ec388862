package models

import "strings"

type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

func ParseUserRole(s string) (UserRole, bool) {
	switch UserRole(strings.ToUpper(strings.TrimSpace(s))) {
	case UserRoleAdmin:
		return UserRoleAdmin, true
	case UserRoleUser:
		return UserRoleUser, true
	}
	return "", false
}

// User is the signed-in identity held by the client. AccessToken and
// RefreshToken are empty before verification.
type User struct {
	AccessToken  string
	RefreshToken string
	ID           string
	Email        string
	Role         UserRole
	Major        string
	CreatedAt    string
}

func (u *User) HasTokens() bool {
	return u != nil && u.AccessToken != "" && u.RefreshToken != ""
}

// StoredSession is the persisted layout under the credential store key.
type StoredSession struct {
	AccessToken  *string   `json:"accessToken,omitempty"`
	RefreshToken *string   `json:"refreshToken,omitempty"`
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         *UserRole `json:"role,omitempty"`
	Major        *string   `json:"major,omitempty"`
	CreatedAt    *string   `json:"createdAt,omitempty"`
}

func NewStoredSession(u User) StoredSession {
	s := StoredSession{
		ID:    u.ID,
		Email: u.Email,
	}
	if u.AccessToken != "" {
		s.AccessToken = &u.AccessToken
	}
	if u.RefreshToken != "" {
		s.RefreshToken = &u.RefreshToken
	}
	if u.Role != "" {
		role := u.Role
		s.Role = &role
	}
	if u.Major != "" {
		s.Major = &u.Major
	}
	if u.CreatedAt != "" {
		s.CreatedAt = &u.CreatedAt
	}
	return s
}

func (s StoredSession) User() User {
	u := User{
		ID:    s.ID,
		Email: s.Email,
	}
	if s.AccessToken != nil {
		u.AccessToken = *s.AccessToken
	}
	if s.RefreshToken != nil {
		u.RefreshToken = *s.RefreshToken
	}
	if s.Role != nil {
		u.Role = *s.Role
	}
	if s.Major != nil {
		u.Major = *s.Major
	}
	if s.CreatedAt != nil {
		u.CreatedAt = *s.CreatedAt
	}
	return u
}
