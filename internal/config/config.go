// Package config handles the XDG configuration directory, config.yaml and file paths.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"todoctl/internal/localstore"
)

const (
	// AppName is the application directory name.
	AppName = "todoctl"

	// ConfigFile is the optional YAML settings file.
	ConfigFile = "config.yaml"

	// StorageFile is the durable key/value store holding the session token.
	StorageFile = "storage.json"

	// BaseURLEnv overrides base_url from config.yaml.
	BaseURLEnv = "TODOCTL_BASE_URL"

	// DefaultBaseURL is used when nothing else is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultNotifyTimeout is how long a notification stays visible.
	DefaultNotifyTimeout = 4 * time.Second

	// DefaultRequestTimeout bounds a single API call.
	DefaultRequestTimeout = 10 * time.Second
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// BaseURL is the root of the REST API.
	BaseURL string

	// NotifyTimeout is the auto-clear delay for notifications.
	NotifyTimeout time.Duration

	// RequestTimeout bounds each API call.
	RequestTimeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Logger receives debug logs. Never nil after New.
	Logger *slog.Logger
}

// fileSettings models config.yaml.
type fileSettings struct {
	BaseURL        string `yaml:"base_url"`
	NotifyTimeout  string `yaml:"notify_timeout"`
	RequestTimeout string `yaml:"request_timeout"`
}

// New creates a Config with the default or specified config directory and
// applies config.yaml and the environment on top of the defaults.
// If configDir is empty, uses XDG_CONFIG_HOME/todoctl or $HOME/.config/todoctl.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:            dir,
		BaseURL:        DefaultBaseURL,
		NotifyTimeout:  DefaultNotifyTimeout,
		RequestTimeout: DefaultRequestTimeout,
		Logger:         slog.New(slog.DiscardHandler),
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	if env := strings.TrimSpace(os.Getenv(BaseURLEnv)); env != "" {
		cfg.BaseURL = env
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

func (c *Config) load() error {
	data, err := os.ReadFile(c.ConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", ConfigFile, err)
	}

	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}

	if fs.BaseURL != "" {
		c.BaseURL = fs.BaseURL
	}
	if fs.NotifyTimeout != "" {
		d, err := parsePositiveDuration(fs.NotifyTimeout)
		if err != nil {
			return fmt.Errorf("invalid notify_timeout: %w", err)
		}
		c.NotifyTimeout = d
	}
	if fs.RequestTimeout != "" {
		d, err := parsePositiveDuration(fs.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	return nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive: %s", s)
	}
	return d, nil
}

// SetLogOutput installs a text logger on w. Debug level when c.Debug is set,
// discarded otherwise.
func (c *Config) SetLogOutput(w io.Writer) {
	if !c.Debug || w == nil {
		c.Logger = slog.New(slog.DiscardHandler)
		return
	}
	c.Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path to config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// StoragePath returns the path to the durable key/value store.
func (c *Config) StoragePath() string {
	return filepath.Join(c.Dir, StorageFile)
}

// Storage opens the durable key/value store.
func (c *Config) Storage() *localstore.Store {
	return localstore.Open(c.StoragePath())
}

// HasToken checks whether a session token is persisted.
func (c *Config) HasToken() bool {
	tok, ok, err := c.Storage().Get(localstore.TokenKey)
	return err == nil && ok && tok != ""
}
