package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PersistAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewStore(path)
	require.NoError(t, s.Load(), "missing file is fine")
	assert.False(t, s.LoggedIn())

	creds := Credentials{Token: "tok-1", User: User{ID: "u1", Name: "Ada", Email: "ada@example.com"}}
	require.NoError(t, s.Set(creds))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	other := NewStore(path)
	require.NoError(t, other.Load())
	assert.Equal(t, "tok-1", other.Token())
	assert.Equal(t, "Ada", other.User().Name)
}

func TestStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewStore(path)
	require.NoError(t, s.Set(Credentials{Token: "tok"}))

	s.Clear()
	assert.Empty(t, s.Token())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	s.Clear() // second clear is harmless
}

func TestStore_InMemory(t *testing.T) {
	s := NewStore("")
	require.NoError(t, s.Set(Credentials{Token: "mem"}))
	assert.Equal(t, "mem", s.Token())
	require.NoError(t, s.Load())
	s.Clear()
	assert.False(t, s.LoggedIn())
}

func TestStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, NewStore(path).Load())
}

func TestStore_ImplementsProvider(t *testing.T) {
	var _ Provider = NewStore("")
}
