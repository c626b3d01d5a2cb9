package core

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskFileStore_SaveOpenRemove(t *testing.T) {
	root := t.TempDir()
	fs, err := NewDiskFileStore(root)
	require.NoError(t, err)

	userID := uuid.New()
	f, err := fs.Save(context.Background(), userID, FileGallery, Upload{Name: `C:\photos\Beach.PNG`, Content: strings.NewReader("sand")})
	require.NoError(t, err)

	assert.Equal(t, "Beach.PNG", f.Name)
	assert.Equal(t, int64(4), f.Size)
	assert.Equal(t, FileGallery, f.Kind)
	assert.True(t, strings.HasPrefix(f.Key, userID.String()+"/"))
	assert.True(t, strings.HasSuffix(f.Key, ".png"))
	assert.FileExists(t, filepath.Join(root, filepath.FromSlash(f.Key)))

	rc, err := fs.Open(f.Key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "sand", string(body))

	require.NoError(t, fs.Remove(f.Key))
	require.NoError(t, fs.Remove(f.Key), "removing twice is fine")
	_, err = fs.Open(f.Key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskFileStore_KeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	fs, err := NewDiskFileStore(filepath.Join(root, "files"))
	require.NoError(t, err)

	outside := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	_, err = fs.Open("../secret.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, fs.Remove("/"))
}

func TestDiskFileStore_CancelledContext(t *testing.T) {
	fs, err := NewDiskFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fs.Save(ctx, uuid.New(), FileProfile, Upload{Name: "a.png", Content: strings.NewReader("a")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDiskFileStore_RequiresRoot(t *testing.T) {
	_, err := NewDiskFileStore("")
	assert.Error(t, err)
}
