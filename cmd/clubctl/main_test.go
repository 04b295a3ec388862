package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"clubhub/client/internal/config"
	"clubhub/client/internal/devserver"
)

func startDevServer(t *testing.T) *devserver.App {
	t.Helper()
	cfg := &config.AppConfig{
		Environment: "test",
		DevServer: config.DevServerConfig{
			JWTSecret:       "clubctl-test-secret",
			AccessTTL:       time.Minute,
			RefreshTTL:      time.Hour,
			VerificationTTL: time.Minute,
			SeedAdminEmail:  "admin@lau.edu",
			SeedAdminPass:   "admin-password",
		},
	}
	app, err := devserver.New(context.Background(), cfg, zerolog.Nop(), nil)
	require.NoError(t, err)

	srv := httptest.NewServer(app.HTTP.Handler())
	t.Cleanup(srv.Close)

	t.Chdir(t.TempDir())
	t.Setenv("CLUBHUB_ENVIRONMENT", "test")
	t.Setenv("CLUBHUB_API_BASEURL", srv.URL+"/api")
	t.Setenv("CLUBHUB_STORE_BACKEND", "file")
	t.Setenv("CLUBHUB_STORE_FILE_DIR", t.TempDir())
	return app
}

func clubctl(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	loginPassword, signupPassword, signupMajor, signupCode = "", "", "", ""

	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var out bytes.Buffer
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginBrowseLogout(t *testing.T) {
	startDevServer(t)

	out, err := clubctl(t, nil, "status")
	require.NoError(t, err)
	require.Contains(t, out, "UNAUTHENTICATED")

	_, err = clubctl(t, nil, "clubs")
	require.Error(t, err)

	out, err = clubctl(t, strings.NewReader("admin-password\n"), "login", "--email", "admin@lau.edu")
	require.NoError(t, err)
	require.Contains(t, out, "State:    AUTHENTICATED")
	require.Contains(t, out, "ADMIN")

	// a fresh run restores the stored session
	out, err = clubctl(t, nil, "status")
	require.NoError(t, err)
	require.Contains(t, out, "admin@lau.edu")

	out, err = clubctl(t, nil, "clubs")
	require.NoError(t, err)
	require.Contains(t, out, "Photography Club")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	clubID := strings.Fields(lines[1])[0]

	out, err = clubctl(t, nil, "club-activate", clubID, "false")
	require.NoError(t, err)
	require.Contains(t, out, "active=false")

	_, err = clubctl(t, nil, "club-activate", clubID, "maybe")
	require.Error(t, err)

	out, err = clubctl(t, nil, "refresh")
	require.NoError(t, err)
	require.Contains(t, out, "State:    AUTHENTICATED")

	out, err = clubctl(t, nil, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out.")

	out, err = clubctl(t, nil, "status")
	require.NoError(t, err)
	require.Contains(t, out, "UNAUTHENTICATED")
}

func TestSignupPromptsForCode(t *testing.T) {
	app := startDevServer(t)

	pr, pw := io.Pipe()
	app.Auth.SetCodeSink(func(_, _, code string) {
		go func() {
			fmt.Fprintln(pw, code)
			_ = pw.Close()
		}()
	})

	out, err := clubctl(t, pr, "signup", "--email", "new@lau.edu", "--password", "new-password", "--major", "Biology")
	require.NoError(t, err)
	require.Contains(t, out, "State:    AUTHENTICATED")
	require.Contains(t, out, "Biology")

	out, err = clubctl(t, nil, "events")
	require.NoError(t, err)
	require.Contains(t, out, "Line follower workshop")

	_, err = clubctl(t, nil, "event-activate", "whatever", "true")
	require.Error(t, err)
}

func TestSignupWithWrongCode(t *testing.T) {
	startDevServer(t)

	_, err := clubctl(t, nil, "signup", "--email", "x@lau.edu", "--password", "x-password", "--code", "000000")
	require.Error(t, err)

	out, err := clubctl(t, nil, "status")
	require.NoError(t, err)
	// the unverified identity is kept, but a new run cannot finish it
	require.Contains(t, out, "UNAUTHENTICATED")
	require.Contains(t, out, "x@lau.edu")
}
