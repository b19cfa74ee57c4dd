package vault

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	v, err := New(key)
	require.NoError(t, err)
	return v
}

func TestRoundTrip(t *testing.T) {
	v := newTestVault(t)

	for _, length := range []int{0, 1, 8, 31, 32, 33, 255, 4096} {
		plaintext := make([]byte, length)
		_, err := rand.Read(plaintext)
		require.NoError(t, err)

		env, err := v.Wrap(plaintext)
		require.NoError(t, err)
		require.NotEmpty(t, env.KeyRef)

		out, err := v.Unwrap(env)
		require.NoError(t, err)
		require.Equal(t, plaintext, out)
	}
}

func TestCorruptionFailsClosed(t *testing.T) {
	v := newTestVault(t)

	env, err := v.Wrap([]byte("a1b2c3d4"))
	require.NoError(t, err)

	flip := func(blob []byte) []byte {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(blob))))
		require.NoError(t, err)
		out := make([]byte, len(blob))
		copy(out, blob)
		out[idx.Int64()] ^= 0x01
		return out
	}

	for i := 0; i < 32; i++ {
		corrupted := env
		corrupted.Secret = flip(env.Secret)
		_, err = v.Unwrap(corrupted)
		require.True(t, errors.Is(err, ErrIntegrity))

		corrupted = env
		corrupted.DataKey = flip(env.DataKey)
		_, err = v.Unwrap(corrupted)
		require.True(t, errors.Is(err, ErrIntegrity))
	}
}

func TestWrongMasterKey(t *testing.T) {
	v := newTestVault(t)
	other := newTestVault(t)

	env, err := v.Wrap([]byte("password"))
	require.NoError(t, err)

	_, err = other.Unwrap(env)
	require.True(t, errors.Is(err, ErrIntegrity))
}

func TestRejectsShortMasterKey(t *testing.T) {
	_, err := New([]byte("too short"))
	require.Error(t, err)
}
