package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"clubhub/client/internal/apiclient"
	"clubhub/client/internal/authclient"
	"clubhub/client/internal/config"
	"clubhub/client/internal/credstore"
	"clubhub/client/internal/httpclient"
	"clubhub/client/internal/models"
	"clubhub/client/internal/security"
	"clubhub/client/internal/session"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Metrics:     config.MetricsConfig{Enabled: true},
		DevServer: config.DevServerConfig{
			JWTSecret:       "devserver-test-secret",
			AccessTTL:       time.Minute,
			RefreshTTL:      time.Hour,
			VerificationTTL: time.Minute,
			RotateRefresh:   true,
			SeedAdminEmail:  "admin@lau.edu",
			SeedAdminPass:   "admin-password",
		},
	}
}

type stack struct {
	app      *App
	srv      *httptest.Server
	api      *httpclient.Client
	sessions *session.Manager
	store    *credstore.Memory
	dir      *apiclient.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	app, err := New(context.Background(), testConfig(), zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)

	srv := httptest.NewServer(app.HTTP.Handler())
	t.Cleanup(srv.Close)

	api := httpclient.New(config.APIConfig{BaseURL: srv.URL + "/api", RequestTimeout: 5 * time.Second}, zerolog.Nop())
	store := credstore.NewMemory()
	mgr := session.NewManager(authclient.New(api), store)
	t.Cleanup(func() { _ = mgr.Close() })
	mgr.Bootstrap(context.Background())

	return &stack{
		app:      app,
		srv:      srv,
		api:      api,
		sessions: mgr,
		store:    store,
		dir:      apiclient.New(api, mgr, zerolog.Nop()),
	}
}

func TestSignUpVerifyAndBrowse(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	_, err := s.dir.ListClubs(ctx)
	require.ErrorIs(t, err, apiclient.ErrNotAuthenticated)

	require.NoError(t, s.sessions.SignUp(ctx, "student@lau.edu", "student-pw", "Computer Science"))
	snap := s.sessions.Snapshot()
	require.Equal(t, session.StatePendingVerification, snap.State)

	code, ok := s.app.VerificationCode(snap.User.ID)
	require.True(t, ok)

	require.NoError(t, s.sessions.Verify(ctx, code))
	snap = s.sessions.Snapshot()
	require.True(t, snap.IsAuthenticated())
	require.False(t, snap.IsAdmin())
	require.Equal(t, "Computer Science", snap.User.Major)

	clubs, err := s.dir.ListClubs(ctx)
	require.NoError(t, err)
	require.Len(t, clubs, 2)

	club, err := s.dir.GetClub(ctx, clubs[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, club.Events)

	_, err = s.dir.SetClubActive(ctx, clubs[0].ID, false)
	require.ErrorIs(t, err, apiclient.ErrForbidden)
}

func TestAdminTogglesClub(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	require.NoError(t, s.sessions.SignIn(ctx, "admin@lau.edu", "admin-password"))
	require.True(t, s.sessions.Snapshot().IsAdmin())

	clubs, err := s.dir.ListClubs(ctx)
	require.NoError(t, err)
	require.Len(t, clubs, 3)

	club, err := s.dir.SetClubActive(ctx, clubs[0].ID, false)
	require.NoError(t, err)
	require.False(t, club.IsActive)

	events, err := s.dir.ListEvents(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	event, err := s.dir.SetEventActive(ctx, events[0].ID, false)
	require.NoError(t, err)
	require.False(t, event.IsActive)
}

func TestRefreshRotatesAndPersists(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	require.NoError(t, s.sessions.SignIn(ctx, "admin@lau.edu", "admin-password"))
	before := s.sessions.Snapshot()

	require.NoError(t, s.sessions.Refresh(ctx, before))

	after := s.sessions.Snapshot()
	require.True(t, after.IsAuthenticated())
	require.NotEqual(t, before.User.AccessToken, after.User.AccessToken)
	require.NotEqual(t, before.User.RefreshToken, after.User.RefreshToken)

	raw, err := s.store.Get(ctx, session.DefaultStoreKey)
	require.NoError(t, err)
	var rec models.StoredSession
	require.NoError(t, json.Unmarshal(raw, &rec))
	require.Equal(t, after.User.RefreshToken, *rec.RefreshToken)
}

func TestRevokedRefreshSignsOut(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	require.NoError(t, s.sessions.SignIn(ctx, "admin@lau.edu", "admin-password"))
	snap := s.sessions.Snapshot()

	var out map[string]int
	require.NoError(t, s.api.Do(ctx, http.MethodPost, "/admin/users/"+snap.User.ID+"/revoke", snap.User.AccessToken, nil, &out))
	require.Equal(t, 1, out["revoked"])

	err := s.sessions.Refresh(ctx, snap)
	require.Error(t, err)
	require.True(t, httpclient.IsStatus(err, http.StatusUnauthorized))

	require.Equal(t, session.StateUnauthenticated, s.sessions.Snapshot().State)
	_, err = s.store.Get(ctx, session.DefaultStoreKey)
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestRejectedTokenSignsOut(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	require.NoError(t, s.sessions.SignIn(ctx, "admin@lau.edu", "admin-password"))

	// a second server with the same secret has never heard of this user
	other := newStack(t)
	dir := apiclient.New(other.api, s.sessions, zerolog.Nop())

	_, err := dir.ListClubs(ctx)
	require.ErrorIs(t, err, apiclient.ErrNotAuthenticated)
	require.Equal(t, session.StateUnauthenticated, s.sessions.Snapshot().State)
}

func TestBootstrapRestoresSession(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	require.NoError(t, s.sessions.SignIn(ctx, "admin@lau.edu", "admin-password"))

	restarted := session.NewManager(authclient.New(s.api), s.store)
	t.Cleanup(func() { _ = restarted.Close() })
	restarted.Bootstrap(ctx)

	snap := restarted.Snapshot()
	require.True(t, snap.IsAuthenticated())
	require.True(t, snap.IsAdmin())
	require.Equal(t, "admin@lau.edu", snap.User.Email)
}

func TestHTTPSurface(t *testing.T) {
	s := newStack(t)

	resp, err := http.Get(s.srv.URL + "/api/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(httpclient.HeaderRequestID))

	resp, err = http.Get(s.srv.URL + "/api/clubs")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Post(s.srv.URL+"/api/auth/login", "application/json", strings.NewReader(`{"email":"admin@lau.edu","password":"nope"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Post(s.srv.URL+"/api/auth/signup", "application/json", strings.NewReader(`{"email":"admin@lau.edu","password":"longenough"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnverifiedLoginIsForbidden(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	_, err := authclient.New(s.api).Signup(ctx, "new@lau.edu", "new-password", "")
	require.NoError(t, err)

	_, err = authclient.New(s.api).Login(ctx, "new@lau.edu", "new-password")
	require.True(t, httpclient.IsStatus(err, http.StatusForbidden))
}

func TestResumedSessionWithExpiredAccessTokenStaysSignedIn(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	require.NoError(t, s.sessions.SignIn(ctx, "admin@lau.edu", "admin-password"))

	// age the stored access token past its expiry
	raw, err := s.store.Get(ctx, session.DefaultStoreKey)
	require.NoError(t, err)
	var rec models.StoredSession
	require.NoError(t, json.Unmarshal(raw, &rec))
	expiredToken, _, err := security.IssueAccessToken(testConfig().DevServer.JWTSecret, rec.ID, rec.Email, "ADMIN", -time.Minute)
	require.NoError(t, err)
	rec.AccessToken = &expiredToken
	raw, err = json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, s.store.Set(ctx, session.DefaultStoreKey, raw))

	for i := 0; i < 5; i++ {
		restarted := session.NewManager(authclient.New(s.api), s.store)
		restarted.Bootstrap(ctx)

		clubs, err := apiclient.New(s.api, restarted, zerolog.Nop()).ListClubs(ctx)
		require.NoError(t, err)
		require.Len(t, clubs, 3)
		require.True(t, restarted.Snapshot().IsAuthenticated())
		require.NoError(t, restarted.Close())
	}

	_, err = s.store.Get(ctx, session.DefaultStoreKey)
	require.NoError(t, err)
}
