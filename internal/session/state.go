package session

import (
	"errors"

	"clubhub/client/internal/models"
	"clubhub/client/internal/security"
)

var (
	ErrClosed         = errors.New("session manager closed")
	ErrMalformedToken = security.ErrMalformedToken
)

type State string

const (
	StateUnknown             State = "UNKNOWN"
	StateUnauthenticated     State = "UNAUTHENTICATED"
	StatePendingVerification State = "PENDING_VERIFICATION"
	StateAuthenticated       State = "AUTHENTICATED"
)

// Snapshot is a read-only copy of the manager's state. Authenticated and
// IsVerified are nil while unknown.
type Snapshot struct {
	State         State
	User          *models.User
	Authenticated *bool
	IsVerified    *bool

	epoch uint64
}

func (s Snapshot) IsAuthenticated() bool {
	return s.Authenticated != nil && *s.Authenticated
}

func (s Snapshot) IsAdmin() bool {
	return s.IsAuthenticated() && s.User != nil && s.User.Role == models.UserRoleAdmin
}

func boolPtr(v bool) *bool {
	return &v
}
