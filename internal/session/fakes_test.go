package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clubhub/client/internal/credstore"
	"clubhub/client/internal/models"
	"clubhub/client/internal/security"
)

const tokenSecret = "session-test-secret"

func issueToken(t *testing.T, userID, role string, ttl time.Duration) string {
	t.Helper()
	tok, _, err := security.IssueAccessToken(tokenSecret, userID, "", role, ttl)
	require.NoError(t, err)
	return tok
}

// fakeAuth answers from per-call hooks and records every call.
type fakeAuth struct {
	mu sync.Mutex

	loginFn   func(email, password string) (*models.LoginResponse, error)
	signupFn  func(email, password, major string) (*models.SignupResponse, error)
	verifyFn  func(code, userID string) (*models.LoginResponse, error)
	refreshFn func(refreshToken string) (*models.RefreshResponse, error)

	logins, signups, verifies, refreshes []string
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*models.LoginResponse, error) {
	f.mu.Lock()
	f.logins = append(f.logins, email)
	fn := f.loginFn
	f.mu.Unlock()
	return fn(email, password)
}

func (f *fakeAuth) Signup(_ context.Context, email, password, major string) (*models.SignupResponse, error) {
	f.mu.Lock()
	f.signups = append(f.signups, email)
	fn := f.signupFn
	f.mu.Unlock()
	return fn(email, password, major)
}

func (f *fakeAuth) Verify(_ context.Context, code, userID string) (*models.LoginResponse, error) {
	f.mu.Lock()
	f.verifies = append(f.verifies, userID)
	fn := f.verifyFn
	f.mu.Unlock()
	return fn(code, userID)
}

func (f *fakeAuth) Refresh(_ context.Context, refreshToken string) (*models.RefreshResponse, error) {
	f.mu.Lock()
	f.refreshes = append(f.refreshes, refreshToken)
	fn := f.refreshFn
	f.mu.Unlock()
	return fn(refreshToken)
}

func (f *fakeAuth) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refreshes)
}

func (f *fakeAuth) verifyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.verifies)
}

// fakeStore wraps the in-memory store with failure injection.
type fakeStore struct {
	*credstore.Memory

	mu      sync.Mutex
	getErr  error
	setErr  error
	gets    int
	sets    int
	deletes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{Memory: credstore.NewMemory()}
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.gets++
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Memory.Get(ctx, key)
}

func (s *fakeStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.sets++
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Set(ctx, key, value)
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.Memory.Delete(ctx, key)
}

func (s *fakeStore) record(t *testing.T) (models.StoredSession, bool) {
	t.Helper()
	raw, err := s.Memory.Get(context.Background(), DefaultStoreKey)
	if errors.Is(err, credstore.ErrNotFound) {
		return models.StoredSession{}, false
	}
	require.NoError(t, err)

	var rec models.StoredSession
	require.NoError(t, json.Unmarshal(raw, &rec))
	return rec, true
}

// fakeClock runs timers only when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs due timers on the caller's goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) active() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// token issues an access token expiring ttl after the fake clock's now.
func (c *fakeClock) token(t *testing.T, userID, role string, ttl time.Duration) string {
	t.Helper()
	return issueToken(t, userID, role, c.Now().Add(ttl).Sub(time.Now()))
}
