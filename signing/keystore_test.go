package signing

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestKeystore(t *testing.T) {
	fs := afero.NewMemMapFs()
	ks := NewKeystore(fs, "/data/keys")

	keys, err := ks.List()
	require.NoError(t, err)
	require.Empty(t, keys)

	alice, err := ks.Create("alice")
	require.NoError(t, err)
	require.Equal(t, "alice", alice.Name())

	info, err := fs.Stat(filepath.Join("/data/keys", "alice"+keyFileExt))
	require.NoError(t, err)
	require.EqualValues(t, 0o600, info.Mode().Perm())

	t.Run("name collision", func(t *testing.T) {
		_, err := ks.Create("alice")
		require.ErrorIs(t, err, ErrKeyExists)

		loaded, err := ks.Load("alice")
		require.NoError(t, err)
		require.Equal(t, alice.PublicKey(), loaded.PublicKey(), "existing key must not be overwritten")
	})
	t.Run("load", func(t *testing.T) {
		loaded, err := ks.Load("alice", WithPrefix([]byte("ns")))
		require.NoError(t, err)
		require.True(t, alice.Matches(loaded))
		require.Equal(t, []byte("ns"), loaded.Prefix())

		_, err = ks.Load("bob")
		require.ErrorIs(t, err, ErrKeyNotFound)
	})
	t.Run("invalid name", func(t *testing.T) {
		for _, name := range []string{"", "../escape", "with space", string(make([]byte, 65))} {
			_, err := ks.Create(name)
			require.ErrorIs(t, err, ErrInvalidKeyName, name)
		}
	})
	t.Run("list", func(t *testing.T) {
		bob, err := ks.Create("bob")
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fs, "/data/keys/notes.txt", []byte("x"), 0o600))

		keys, err := ks.List()
		require.NoError(t, err)
		require.Len(t, keys, 2)
		require.Equal(t, "alice", keys[0].Name)
		require.Equal(t, alice.AccountID(), keys[0].AccountID)
		require.Equal(t, "bob", keys[1].Name)
		require.Equal(t, bob.PublicKey(), keys[1].PublicKey)
	})
	t.Run("corrupted key", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "/data/keys/broken.key", []byte("00"), 0o600))
		_, err := ks.Load("broken")
		require.ErrorContains(t, err, "invalid key size")
	})
}
