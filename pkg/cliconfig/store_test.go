package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigDirName, SessionFileName)
	s := NewFileStore(path)

	_, ok := s.Get("serverUrl")
	assert.False(t, ok, "empty store must report keys as absent")

	require.NoError(t, s.Set("serverUrl", "http://bucket.local:5000"))
	require.NoError(t, s.Set("username", "admin"))

	got, ok := s.Get("serverUrl")
	require.True(t, ok)
	assert.Equal(t, "http://bucket.local:5000", got)

	// A fresh store over the same file sees the persisted values.
	reopened := NewFileStore(path)
	got, ok = reopened.Get("username")
	require.True(t, ok)
	assert.Equal(t, "admin", got)
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", SessionFileName)
	s := NewFileStore(path)
	require.NoError(t, s.Set("password", "secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "session file holds credentials")

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestFileStore_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), SessionFileName)
	s := NewFileStore(path)

	require.NoError(t, s.Remove("absent"), "removing an absent key is not an error")

	require.NoError(t, s.Set("serverUrl", "http://bucket.local"))
	require.NoError(t, s.Set("username", "admin"))
	require.NoError(t, s.Remove("username"))

	_, ok := s.Get("username")
	assert.False(t, ok)
	_, ok = s.Get("serverUrl")
	assert.True(t, ok, "other keys survive a removal")
}

func TestFileStore_RemoveLastKeyDeletesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), SessionFileName)
	s := NewFileStore(path)

	require.NoError(t, s.Set("serverUrl", "http://bucket.local"))
	require.NoError(t, s.Remove("serverUrl"))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should be gone once the last key is removed")

	// And removing again is still fine.
	require.NoError(t, s.Remove("serverUrl"))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), SessionFileName)
	require.NoError(t, os.WriteFile(path, []byte(":\n  - not a mapping"), 0o600))

	s := NewFileStore(path)
	_, ok := s.Get("serverUrl")
	assert.False(t, ok)
	assert.Error(t, s.Set("serverUrl", "http://bucket.local"))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get("k")
	assert.False(t, ok)

	require.NoError(t, s.Set("k", "v"))
	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	require.NoError(t, s.Remove("k"))
	_, ok = s.Get("k")
	assert.False(t, ok)
	require.NoError(t, s.Remove("k"))
}

func TestServerURLFromEnv(t *testing.T) {
	t.Setenv(EnvServerURL, "http://override.local:9000")
	assert.Equal(t, "http://override.local:9000", ServerURLFromEnv())
}
