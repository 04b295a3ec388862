package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"clubhub/client/internal/credstore"
	"clubhub/client/internal/metrics"
	"clubhub/client/internal/models"
	"clubhub/client/internal/security"
)

const DefaultStoreKey = "user"

// AuthService is the remote side of the session lifecycle.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Signup(ctx context.Context, email, password, major string) (*models.SignupResponse, error)
	Verify(ctx context.Context, code, userID string) (*models.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error)
}

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithClock(clock Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

func WithStoreKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.key = key
		}
	}
}

// WithRefreshLeeway arms the refresh timer this long before the access
// token expires.
func WithRefreshLeeway(d time.Duration) Option {
	return func(m *Manager) { m.leeway = d }
}

func WithMetrics(mt *metrics.Session) Option {
	return func(m *Manager) { m.metrics = mt }
}

// Manager owns the signed-in session. Network calls run without holding
// any lock; only the persist and commit step is serialized. Every commit
// bumps epoch, and a refresh or verify whose epoch moved while its call
// was in flight drops its result. Concurrent refreshes of one epoch share
// a single call.
type Manager struct {
	auth    AuthService
	store   credstore.Store
	key     string
	leeway  time.Duration
	clock   Clock
	logger  zerolog.Logger
	metrics *metrics.Session

	bootOnce  sync.Once
	commitMu  sync.Mutex
	refreshes singleflight.Group

	mu            sync.Mutex
	state         State
	user          *models.User
	authenticated *bool
	isVerified    *bool
	pendingUserID string
	epoch         uint64
	timer         Timer
	closed        bool
	subs          map[int]chan Snapshot
	nextSub       int
}

func NewManager(auth AuthService, store credstore.Store, opts ...Option) *Manager {
	m := &Manager{
		auth:   auth,
		store:  store,
		key:    DefaultStoreKey,
		clock:  realClock{},
		logger: zerolog.Nop(),
		state:  StateUnknown,
		subs:   make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe returns a channel that receives the current snapshot and then
// every change. Slow readers only see the latest snapshot. The channel is
// closed by cancel or Close.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}

	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snapshotLocked()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

// Bootstrap hydrates the manager from the credential store. Only the first
// call does anything; read failures count as "no session".
func (m *Manager) Bootstrap(ctx context.Context) {
	m.bootOnce.Do(func() {
		m.bootstrap(ctx)
	})
}

func (m *Manager) bootstrap(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	m.mu.Unlock()

	rec, ok := m.load(ctx)
	user := rec.User()

	var (
		claims security.Claims
		err    error
	)
	if ok && user.HasTokens() {
		claims, err = security.DecodeClaims(user.AccessToken)
		if err == nil && user.Role == "" {
			if role, known := models.ParseUserRole(claims.Role); known {
				user.Role = role
			} else {
				err = fmt.Errorf("%w: unknown role %q", ErrMalformedToken, claims.Role)
			}
		}
	}

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.superseded(epoch) {
		m.logger.Debug().Msg("bootstrap superseded by a newer session change")
		return
	}

	if err != nil {
		m.logger.Warn().Err(err).Msg("discarding persisted session")
		if delErr := m.store.Delete(ctx, m.key); delErr != nil {
			m.logger.Warn().Err(delErr).Msg("delete persisted session")
		}
		ok = false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case !ok:
		m.clearLocked()
		m.logger.Info().Msg("no persisted session")
	case !user.HasTokens():
		m.epoch++
		m.cancelTimerLocked()
		m.state = StateUnauthenticated
		m.user = &user
		m.authenticated = boolPtr(false)
		m.isVerified = nil
		if rec.Role != nil {
			m.isVerified = boolPtr(true)
		}
		m.commitLocked()
		m.logger.Info().Str("user_id", user.ID).Msg("restored partial session")
	default:
		m.setAuthenticatedLocked(user, claims.ExpiresAt)
		m.logger.Info().Str("user_id", user.ID).Time("expires_at", claims.ExpiresAt).Msg("restored session")
	}
}

func (m *Manager) superseded(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed || m.epoch != epoch
}

func (m *Manager) load(ctx context.Context) (models.StoredSession, bool) {
	var rec models.StoredSession

	raw, err := m.store.Get(ctx, m.key)
	if err != nil {
		if !errors.Is(err, credstore.ErrNotFound) {
			m.logger.Warn().Err(err).Msg("read persisted session")
		}
		return rec, false
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		m.logger.Warn().Err(err).Msg("decode persisted session")
		return rec, false
	}
	return rec, true
}

func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if m.isClosed() {
		return ErrClosed
	}

	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.metrics.SignIn("failure")
		return err
	}

	user, exp, err := authenticatedUser(res)
	if err != nil {
		m.metrics.SignIn("failure")
		return fmt.Errorf("sign in: %w", err)
	}

	if err := m.commitAuthenticated(ctx, user, exp, nil); err != nil {
		m.metrics.SignIn("failure")
		return fmt.Errorf("sign in: %w", err)
	}
	m.metrics.SignIn("success")
	m.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("signed in")
	return nil
}

func (m *Manager) SignUp(ctx context.Context, email, password, major string) error {
	if m.isClosed() {
		return ErrClosed
	}

	res, err := m.auth.Signup(ctx, email, password, major)
	if err != nil {
		m.metrics.SignUp("failure")
		return err
	}

	user := models.User{ID: res.UserID, Email: email}

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.isClosed() {
		return ErrClosed
	}
	if err := m.persist(ctx, user); err != nil {
		m.metrics.SignUp("failure")
		return fmt.Errorf("sign up: %w", err)
	}

	m.mu.Lock()
	m.epoch++
	m.cancelTimerLocked()
	m.state = StatePendingVerification
	m.user = &user
	m.authenticated = boolPtr(false)
	m.isVerified = boolPtr(false)
	m.pendingUserID = res.UserID
	m.commitLocked()
	m.mu.Unlock()

	m.metrics.SignUp("success")
	m.logger.Info().Str("user_id", user.ID).Msg("signed up, awaiting verification")
	return nil
}

// Verify completes a sign-up made through this manager. Without one it
// does nothing. Auth service failures are logged and leave the state as
// it was so the caller can retry.
func (m *Manager) Verify(ctx context.Context, code string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	pending := m.pendingUserID
	epoch := m.epoch
	m.mu.Unlock()

	if pending == "" {
		m.logger.Debug().Msg("verify called without a pending sign-up")
		return nil
	}

	res, err := m.auth.Verify(ctx, code, pending)
	if err != nil {
		m.metrics.Verification("failure")
		m.logger.Error().Err(err).Str("user_id", pending).Msg("verification failed")
		return nil
	}

	user, exp, err := authenticatedUser(res)
	if err != nil {
		m.metrics.Verification("failure")
		return fmt.Errorf("verify: %w", err)
	}

	if err := m.commitAuthenticated(ctx, user, exp, &epoch); err != nil {
		if errors.Is(err, errStale) {
			m.metrics.Verification("stale")
			return nil
		}
		m.metrics.Verification("failure")
		return fmt.Errorf("verify: %w", err)
	}
	m.metrics.Verification("success")
	m.logger.Info().Str("user_id", user.ID).Msg("verified")
	return nil
}

// Refresh trades the snapshot's refresh token for a new access token. It
// is a no-op unless the snapshot holds both tokens. Callers refreshing the
// same session at once wait for one shared call. Any failure signs the
// session out and is returned; there is no retry.
func (m *Manager) Refresh(ctx context.Context, snap Snapshot) error {
	if snap.User == nil || !snap.User.HasTokens() {
		return nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	stale := m.epoch != snap.epoch
	m.mu.Unlock()
	if stale {
		m.metrics.Refresh("stale")
		return nil
	}

	_, err, shared := m.refreshes.Do(strconv.FormatUint(snap.epoch, 10), func() (any, error) {
		return nil, m.refresh(ctx, snap)
	})
	if shared {
		m.logger.Debug().Str("user_id", snap.User.ID).Msg("joined in-flight refresh")
	}
	return err
}

func (m *Manager) refresh(ctx context.Context, snap Snapshot) error {
	res, err := m.auth.Refresh(ctx, snap.User.RefreshToken)
	if err != nil {
		m.logger.Warn().Err(err).Str("user_id", snap.User.ID).Msg("token refresh failed")
		return m.failRefresh(ctx, snap.epoch, err)
	}

	claims, err := security.DecodeClaims(res.AccessToken)
	if err != nil {
		return m.failRefresh(ctx, snap.epoch, err)
	}
	role, ok := models.ParseUserRole(claims.Role)
	if !ok {
		return m.failRefresh(ctx, snap.epoch, fmt.Errorf("%w: unknown role %q", ErrMalformedToken, claims.Role))
	}

	user := *snap.User
	user.AccessToken = res.AccessToken
	if res.RefreshToken != "" {
		user.RefreshToken = res.RefreshToken
	}
	user.Role = role

	epoch := snap.epoch
	if err := m.commitAuthenticated(ctx, user, claims.ExpiresAt, &epoch); err != nil {
		if errors.Is(err, errStale) {
			m.metrics.Refresh("stale")
			return nil
		}
		return m.failRefresh(ctx, snap.epoch, err)
	}

	m.metrics.Refresh("success")
	m.logger.Debug().Str("user_id", user.ID).Time("expires_at", claims.ExpiresAt).Msg("access token refreshed")
	return nil
}

func (m *Manager) failRefresh(ctx context.Context, epoch uint64, cause error) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.mu.Lock()
	stale := m.epoch != epoch
	m.mu.Unlock()
	if stale {
		m.metrics.Refresh("stale")
		return nil
	}

	m.metrics.Refresh("failure")
	m.metrics.SignOut("refresh_failure")
	m.signOutLocked(ctx)
	return fmt.Errorf("refresh: %w", cause)
}

// SignOut forgets the session in memory and in the store. Store errors are
// logged, never returned.
func (m *Manager) SignOut(ctx context.Context) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.metrics.SignOut("user")
	m.signOutLocked(ctx)
	m.logger.Info().Msg("signed out")
}

// SignOutIf signs out only while snap is still the current session, so a
// rejection of an old access token cannot end a session that was
// refreshed or replaced meanwhile. It reports whether it signed out.
func (m *Manager) SignOutIf(ctx context.Context, snap Snapshot) bool {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.mu.Lock()
	current := m.epoch == snap.epoch
	m.mu.Unlock()
	if !current {
		return false
	}

	m.metrics.SignOut("rejected")
	m.signOutLocked(ctx)
	m.logger.Info().Msg("signed out after the api rejected the session")
	return true
}

// signOutLocked expects commitMu to be held.
func (m *Manager) signOutLocked(ctx context.Context) {
	if err := m.store.Delete(ctx, m.key); err != nil {
		m.logger.Warn().Err(err).Msg("delete persisted session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

// Close cancels the refresh timer and closes subscriber channels. Later
// operations return ErrClosed; SignOut still clears the store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.epoch++
	m.cancelTimerLocked()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	return nil
}

var errStale = errors.New("session changed while the call was in flight")

// commitAuthenticated persists user and then makes it the current session.
// With a non-nil guard it gives up with errStale if the epoch moved.
func (m *Manager) commitAuthenticated(ctx context.Context, user models.User, exp time.Time, guard *uint64) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.mu.Lock()
	closed, epoch := m.closed, m.epoch
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if guard != nil && *guard != epoch {
		return errStale
	}

	if err := m.persist(ctx, user); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setAuthenticatedLocked(user, exp)
	return nil
}

func (m *Manager) persist(ctx context.Context, user models.User) error {
	raw, err := json.Marshal(models.NewStoredSession(user))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.key, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (m *Manager) setAuthenticatedLocked(user models.User, exp time.Time) {
	m.epoch++
	m.state = StateAuthenticated
	m.user = &user
	m.authenticated = boolPtr(true)
	m.isVerified = boolPtr(true)
	m.pendingUserID = ""
	m.armLocked(exp)
	m.commitLocked()
}

func (m *Manager) clearLocked() {
	m.epoch++
	m.cancelTimerLocked()
	m.state = StateUnauthenticated
	m.user = nil
	m.authenticated = boolPtr(false)
	m.isVerified = nil
	m.pendingUserID = ""
	m.commitLocked()
}

// armLocked replaces any pending refresh timer with one firing at exp,
// or right away when exp has passed.
func (m *Manager) armLocked(exp time.Time) {
	m.cancelTimerLocked()
	if m.closed {
		return
	}

	d := exp.Sub(m.clock.Now()) - m.leeway
	if d < 0 {
		d = 0
	}
	epoch := m.epoch
	m.timer = m.clock.AfterFunc(d, func() {
		m.onExpiry(epoch)
	})
}

func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) onExpiry(epoch uint64) {
	snap := m.Snapshot()
	if snap.epoch != epoch {
		return
	}
	if err := m.Refresh(context.Background(), snap); err != nil {
		m.logger.Info().Err(err).Msg("session ended after failed refresh")
	}
}

func (m *Manager) commitLocked() {
	m.metrics.SetState(string(m.state))
	if m.closed {
		return
	}
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State: m.state,
		epoch: m.epoch,
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	if m.authenticated != nil {
		snap.Authenticated = boolPtr(*m.authenticated)
	}
	if m.isVerified != nil {
		snap.IsVerified = boolPtr(*m.isVerified)
	}
	return snap
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func authenticatedUser(res *models.LoginResponse) (models.User, time.Time, error) {
	claims, err := security.DecodeClaims(res.AccessToken)
	if err != nil {
		return models.User{}, time.Time{}, err
	}
	role, ok := models.ParseUserRole(claims.Role)
	if !ok {
		return models.User{}, time.Time{}, fmt.Errorf("%w: unknown role %q", ErrMalformedToken, claims.Role)
	}
	if res.RefreshToken == "" {
		return models.User{}, time.Time{}, fmt.Errorf("%w: response carries no refresh token", ErrMalformedToken)
	}

	return models.User{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ID:           res.ID,
		Email:        res.Email,
		Role:         role,
		Major:        res.Major,
		CreatedAt:    res.CreatedAt,
	}, claims.ExpiresAt, nil
}
