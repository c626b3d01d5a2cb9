// Package config loads console settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/registry/internal/table"
)

// FileName is the config file looked up in the working directory.
const FileName = "registry-console.yaml"

// EnvPrefix marks environment variables read as config keys,
// e.g. REGISTRY_BASE_URL -> base_url.
const EnvPrefix = "REGISTRY_"

// Config is the console's effective configuration.
type Config struct {
	BaseURL            string        `koanf:"base_url"`
	Timeout            time.Duration `koanf:"timeout"`
	SessionFile        string        `koanf:"session_file"`
	ExportDir          string        `koanf:"export_dir"`
	PageSize           int           `koanf:"page_size"`
	Debounce           time.Duration `koanf:"debounce"`
	LogFile            string        `koanf:"log_file"`
	LogLevel           string        `koanf:"log_level"`
	LogFormat          string        `koanf:"log_format"`
	CancelSuperseded   bool          `koanf:"cancel_superseded"`
	RefetchAfterDelete bool          `koanf:"refetch_after_delete"`

	// FileUsed is the config file that was read, "" when none.
	FileUsed string `koanf:"-"`
}

// Defaults returns the built-in values.
func Defaults() map[string]any {
	return map[string]any{
		"base_url":             "http://localhost:8080",
		"timeout":              "30s",
		"session_file":         defaultSessionFile(),
		"export_dir":           ".",
		"page_size":            table.DefaultPageSize,
		"debounce":             table.DefaultQuietPeriod.String(),
		"log_file":             "",
		"log_level":            "info",
		"log_format":           "text",
		"cancel_superseded":    false,
		"refetch_after_delete": false,
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "registry-console", "session.json")
}

// Load builds a Config. cfgFile overrides the lookup of FileName; flags may be
// nil, and only flags the user changed take part.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findConfigFile returns the explicit file, which must exist, or FileName in
// the working directory when present.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName, nil
	}
	return "", nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	switch {
	case c.BaseURL == "":
		errs = append(errs, errors.New("base_url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("base_url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("base_url must be http or https, got %q", c.BaseURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("base_url has no host: %q", c.BaseURL))
	}

	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Debounce < 0 {
		errs = append(errs, errors.New("debounce must not be negative"))
	}
	if !table.ValidPageSize(c.PageSize) {
		errs = append(errs, fmt.Errorf("page_size must be one of %v", table.PageSizes))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("log_level %q is not a level", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid console configuration: %w", errors.Join(errs...))
	}
	return nil
}
