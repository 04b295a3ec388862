package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var fastParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPasswordWithParams("hunter22", fastParams)
	require.NoError(t, err)

	ok, err := VerifyPassword("hunter22", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("hunter23", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyPassword_RejectsGarbage(t *testing.T) {
	_, err := VerifyPassword("x", []byte("$bcrypt$whatever"))
	require.Error(t, err)
}
