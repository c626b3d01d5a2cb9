package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "console.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("base-url", "", "")
	fs.Int("page-size", 0, "")
	fs.Duration("timeout", 0, "")
	fs.String("config", "", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.CancelSuperseded)
	assert.Empty(t, cfg.FileUsed)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, `
base_url: https://file.example.com/
page_size: 25
timeout: 5s
export_dir: /tmp/exports
cancel_superseded: true
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://file.example.com", cfg.BaseURL)
		assert.Equal(t, 25, cfg.PageSize)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.Equal(t, "/tmp/exports", cfg.ExportDir)
		assert.True(t, cfg.CancelSuperseded)
		assert.Equal(t, path, cfg.FileUsed)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("REGISTRY_PAGE_SIZE", "50")
		t.Setenv("REGISTRY_LOG_LEVEL", "debug")
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.PageSize)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "https://file.example.com", cfg.BaseURL)
	})

	t.Run("changed flags over env", func(t *testing.T) {
		t.Setenv("REGISTRY_PAGE_SIZE", "50")
		fs := testFlags()
		require.NoError(t, fs.Parse([]string{"--page-size", "100", "--base-url", "http://flag:9000"}))

		cfg, err := Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, 100, cfg.PageSize)
		assert.Equal(t, "http://flag:9000", cfg.BaseURL)
		// unchanged flags leave lower layers alone
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})
}

func TestLoadFindsFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("page_size: 5\n"), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, FileName, cfg.FileUsed)
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad page size", "page_size: 7\n", "page_size"},
		{"bad scheme", "base_url: ftp://host\n", "http or https"},
		{"no host", "base_url: http://\n", "no host"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"bad format", "log_format: xml\n", "log_format"},
		{"zero timeout", "timeout: 0s\n", "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.body)
			_, err := Load(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAggregates(t *testing.T) {
	cfg := Config{BaseURL: "", PageSize: 3, LogLevel: "x", LogFormat: "y"}
	err := cfg.Validate()
	require.Error(t, err)
	for _, part := range []string{"base_url", "timeout", "page_size", "log_level", "log_format"} {
		assert.Contains(t, err.Error(), part)
	}
}
