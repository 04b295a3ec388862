package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "user", cfg.Session.StoreKey)
	require.Equal(t, "file", cfg.Store.Backend)
	require.Equal(t, 15*time.Second, cfg.API.RequestTimeout)
	require.Equal(t, 15*time.Minute, cfg.DevServer.AccessTTL)
	require.Equal(t, 720*time.Hour, cfg.DevServer.RefreshTTL)
	require.Equal(t, "clubhub:cred:", cfg.Store.Redis.Prefix)
}

func TestLoadFile_YAMLAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clubhub.yaml")
	yaml := `
environment: staging
api:
  baseurl: https://clubs.example.edu/api
  requesttimeout: 3s
store:
  backend: redis
  redis:
    addr: redis:6379
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CLUBHUB_STORE_REDIS_DB", "3")
	t.Setenv("CLUBHUB_SESSION_REFRESHLEEWAY", "30s")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	require.Equal(t, "staging", cfg.Environment)
	require.Equal(t, "https://clubs.example.edu/api", cfg.API.BaseURL)
	require.Equal(t, 3*time.Second, cfg.API.RequestTimeout)
	require.Equal(t, "redis", cfg.Store.Backend)
	require.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	require.Equal(t, 3, cfg.Store.Redis.DB)
	require.Equal(t, 30*time.Second, cfg.Session.RefreshLeeway)
}

func TestLoadFile_RejectsUnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLUBHUB_STORE_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown store backend")
}

func TestLoadFile_RejectsDevSecretInProduction(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLUBHUB_ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("CLUBHUB_DEVSERVER_JWTSECRET", "something-else")
	_, err = Load()
	require.NoError(t, err)
}

func TestLoadFile_MissingExplicitFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
