package console

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/registry/internal/table"
)

func TestStampedName(t *testing.T) {
	at := time.Date(2026, 3, 4, 15, 6, 7, 0, time.UTC)
	tests := []struct {
		in, want string
	}{
		{"users_export.csv", "users_export-20260304-150607.csv"},
		{"../../etc/users.csv", "users-20260304-150607.csv"},
		{"report", "report-20260304-150607"},
		{"", "export-20260304-150607.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stampedName(tt.in, at), tt.in)
	}
}

func TestDirSinkDeliver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	at := time.Date(2026, 3, 4, 15, 6, 7, 0, time.UTC)
	sink := DirSink{Dir: dir, Now: func() time.Time { return at }}

	path, err := sink.Deliver("users_export.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "users_export-20260304-150607.csv"), path)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(got))

	// same second: never overwrite
	second, err := sink.Deliver("users_export.csv", []byte("c,d\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "users_export-20260304-150607-1.csv"), second)
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(got))
}

func TestUserColumns(t *testing.T) {
	cols := table.NewColumnRegistry(UserColumns())
	row := table.Row{
		"id":             "u1",
		"name":           "Alice",
		"role":           map[string]any{"id": float64(2), "name": "Editor"},
		"profile":        map[string]any{"name": "me.png"},
		"user_galleries": []any{map[string]any{"name": "a.png"}, map[string]any{"name": "b.png"}},
		"user_pictures":  []any{map[string]any{"name": "c.png"}},
		"created_at":     "2026-01-02T03:04:05Z",
	}

	role, _ := cols.Lookup("role")
	assert.Equal(t, "Editor", role.Cell(row))

	files, _ := cols.Lookup("files")
	assert.Equal(t, "4", files.Cell(row))
	assert.Equal(t, table.AlignRight, files.Align)
	assert.False(t, files.Sortable)

	created, _ := cols.Lookup("created_at")
	assert.Regexp(t, `^2026-01-0[12]$`, created.Cell(row))
	assert.False(t, cols.IsVisible("created_at"))

	assert.Equal(t, "0", files.Cell(table.Row{"id": "u2", "profile": nil}))
	assert.Equal(t, "not a date", created.Cell(table.Row{"created_at": "not a date"}))
}

func TestFileNames(t *testing.T) {
	row := table.Row{"user_galleries": []any{map[string]any{"name": "a.png"}, map[string]any{"name": "b.png"}}}
	assert.Equal(t, "a.png, b.png", FileNames(row, "user_galleries"))
	assert.Empty(t, FileNames(row, "user_pictures"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefghij", 5))
}
