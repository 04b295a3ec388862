package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clubhub/client/internal/config"
	"clubhub/client/internal/devserver/repository"
	"clubhub/client/internal/ids"
	"clubhub/client/internal/models"
	"clubhub/client/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

// CodeSink receives verification codes; the dev server has no mailer.
type CodeSink func(userID, email, code string)

type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	codes    *repository.CodeRepository
	cfg      config.DevServerConfig
	log      zerolog.Logger
	now      func() time.Time

	sinkMu sync.RWMutex
	sink   CodeSink
}

func NewAuthService(
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	codes *repository.CodeRepository,
	cfg config.DevServerConfig,
	log zerolog.Logger,
) *AuthService {
	s := &AuthService{
		users:    users,
		sessions: sessions,
		codes:    codes,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
	s.sink = func(userID, email, code string) {
		s.log.Info().Str("user_id", userID).Str("email", email).Str("code", code).Msg("verification code issued")
	}
	return s
}

// SetCodeSink replaces where verification codes go. It is safe to call
// while requests are served.
func (s *AuthService) SetCodeSink(sink CodeSink) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.sink = sink
}

func (s *AuthService) sendCode(userID, email, code string) {
	s.sinkMu.RLock()
	sink := s.sink
	s.sinkMu.RUnlock()
	sink(userID, email, code)
}

type SignupInput struct {
	Email    string
	Password string
	Major    string
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (string, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return "", fmt.Errorf("email and password required")
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return "", err
	}

	user := models.Account{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		Major:        input.Major,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", err
	}

	code, err := newVerificationCode()
	if err != nil {
		return "", err
	}
	s.codes.Put(ctx, models.VerificationCode{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: s.now().Add(s.cfg.VerificationTTL),
	})
	s.sendCode(user.ID, user.Email, code)

	return user.ID, nil
}

// SeedAccount creates an already verified account.
func (s *AuthService) SeedAccount(ctx context.Context, email, password string, role models.UserRole) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.Create(ctx, models.Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Verified:     true,
		CreatedAt:    s.now().UTC(),
	})
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         models.Account
}

func (s *AuthService) Verify(ctx context.Context, code, userID string) (AuthResult, error) {
	if err := s.codes.Consume(ctx, userID, code, s.now()); err != nil {
		s.log.Debug().Err(err).Str("user_id", userID).Msg("verification rejected")
		return AuthResult{}, ErrInvalidCode
	}

	user, err := s.users.MarkVerified(ctx, userID)
	if err != nil {
		return AuthResult{}, ErrInvalidCode
	}
	return s.createSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if !user.Verified {
		return AuthResult{}, ErrNotVerified
	}

	return s.createSession(ctx, user)
}

func (s *AuthService) createSession(ctx context.Context, user models.Account) (AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken(0)
	if err != nil {
		return AuthResult{}, err
	}

	accessToken, err := s.issueAccess(user)
	if err != nil {
		return AuthResult{}, err
	}

	session := models.RefreshSession{
		ID:               ids.New(),
		UserID:           user.ID,
		RefreshTokenHash: refreshHash,
		CreatedAt:        s.now(),
		ExpiresAt:        s.now().Add(s.cfg.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh issues a new access token. With RotateRefresh set the refresh
// token is replaced too and the old one stops working; the old session is
// taken out of the repository before anything else, so two refreshes with
// one token cannot both succeed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	hash := security.HashRefreshToken(refreshToken)

	var (
		session models.RefreshSession
		err     error
	)
	if s.cfg.RotateRefresh {
		session, err = s.sessions.TakeByRefreshHash(ctx, hash)
	} else {
		session, err = s.sessions.FindByRefreshHash(ctx, hash)
	}
	if err != nil {
		return AuthResult{}, ErrInvalidRefresh
	}

	if !session.ExpiresAt.After(s.now()) {
		_ = s.sessions.Delete(ctx, hash)
		return AuthResult{}, ErrInvalidRefresh
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return AuthResult{}, ErrInvalidRefresh
	}

	accessToken, err := s.issueAccess(user)
	if err != nil {
		return AuthResult{}, err
	}

	result := AuthResult{AccessToken: accessToken, User: user}
	if !s.cfg.RotateRefresh {
		return result, nil
	}

	newToken, newHash, err := security.GenerateRefreshToken(0)
	if err != nil {
		return AuthResult{}, err
	}
	session.RefreshTokenHash = newHash
	session.ExpiresAt = s.now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}
	result.RefreshToken = newToken
	return result, nil
}

// RevokeUser drops every refresh session of the user.
func (s *AuthService) RevokeUser(ctx context.Context, userID string) int {
	return s.sessions.DeleteByUser(ctx, userID)
}

func (s *AuthService) issueAccess(user models.Account) (string, error) {
	token, _, err := security.IssueAccessToken(s.cfg.JWTSecret, user.ID, user.Email, string(user.Role), s.cfg.AccessTTL)
	return token, err
}

func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
