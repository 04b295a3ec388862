package credstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"clubhub/client/internal/config"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "user")
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	require.NoError(t, s.Set(ctx, "user", []byte(`{"id":"1"}`)))
	got, err := s.Get(ctx, "user")
	require.NoError(t, err)
	require.Equal(t, `{"id":"1"}`, string(got))

	require.NoError(t, s.Set(ctx, "user", []byte(`{"id":"2"}`)))
	got, err = s.Get(ctx, "user")
	require.NoError(t, err)
	require.Equal(t, `{"id":"2"}`, string(got))

	require.NoError(t, s.Delete(ctx, "user"))
	_, err = s.Get(ctx, "user")
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	require.NoError(t, s.Delete(ctx, "user"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", v))
	v[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}

func TestFile(t *testing.T) {
	s, err := NewFile(config.FileStoreConfig{Dir: filepath.Join(t.TempDir(), "creds")})
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFile_PermissionsAndExpandedDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv("CLUBHUB_TEST_BASE", base)

	s, err := NewFile(config.FileStoreConfig{Dir: "$CLUBHUB_TEST_BASE/creds"})
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "user", []byte("x")))

	info, err := os.Stat(filepath.Join(base, "creds", "user.cred"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFile_RejectsPathKeys(t *testing.T) {
	s, err := NewFile(config.FileStoreConfig{Dir: t.TempDir()})
	require.NoError(t, err)

	require.Error(t, s.Set(context.Background(), "../escape", []byte("x")))
	_, err = s.Get(context.Background(), "")
	require.Error(t, err)
}

func TestSealed(t *testing.T) {
	s, err := NewSealed(NewMemory(), "passphrase")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestSealed_ValuesAreEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	s, err := NewSealed(inner, "passphrase")
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "user", []byte(`{"accessToken":"secret"}`)))
	raw, err := inner.Get(ctx, "user")
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret")

	other, err := NewSealed(inner, "wrong")
	require.NoError(t, err)
	_, err = other.Get(ctx, "user")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, config.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &Memory{}, s)

	s, closeFn, err = Open(ctx, config.StoreConfig{
		Backend:    "file",
		Passphrase: "pw",
		File:       config.FileStoreConfig{Dir: t.TempDir()},
	})
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &Sealed{}, s)
	exerciseStore(t, s)

	_, closeFn, err = Open(ctx, config.StoreConfig{Backend: "etcd"})
	require.Error(t, err)
	closeFn()
}
