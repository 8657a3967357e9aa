// Package config loads the madhabits settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/remote/postgres"
	"github.com/FahimKhamsa/madhabits/internal/utils"
)

// Backend names accepted in the settings file.
const (
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

type Config struct {
	// Backend selects the remote store. "none" runs offline only.
	Backend string `yaml:"backend"`

	// Connection is a PostgreSQL URI or DSN without a password. The
	// keyring and MADHABITS_DB_CONNECTION take precedence over it.
	Connection string `yaml:"connection,omitempty"`

	// Timezone is an IANA name used to decide what "today" is. Empty
	// means the system timezone.
	Timezone string `yaml:"timezone,omitempty"`

	SyncInterval  time.Duration `yaml:"sync_interval"`
	MetricsAddr   string        `yaml:"metrics_addr,omitempty"`
	Notifications bool          `yaml:"notifications"`

	connFromEnv bool
}

func Default() Config {
	return Config{
		Backend:       BackendNone,
		SyncInterval:  constants.SyncInterval,
		Notifications: true,
	}
}

// Load reads the settings file at path. A missing file yields the defaults.
// Environment overrides are applied after the file is parsed.
func Load(path string) (Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadFile reads the settings file without environment overrides, which is
// what callers that write the file back need.
func ReadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
		}
	}
	return cfg, nil
}

// CreateDefault writes the default settings to path, creating parent
// directories as needed.
func CreateDefault(path string) error {
	return Save(path, Default())
}

func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnv(getenv func(string) string) {
	if tz := strings.TrimSpace(getenv(constants.EnvTimezone)); tz != "" {
		c.Timezone = tz
	}
	if conn := strings.TrimSpace(getenv(constants.EnvDBConnection)); conn != "" {
		c.Connection = conn
		c.connFromEnv = true
		if c.Backend == BackendNone || c.Backend == "" {
			c.Backend = BackendPostgres
		}
	}
}

// Validate checks the settings for values the application cannot use.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendPostgres, BackendNone:
	default:
		return apperrors.Validationf("unknown backend %q (want %q or %q)", c.Backend, BackendPostgres, BackendNone)
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return apperrors.Validationf("invalid timezone %q", c.Timezone)
	}
	if c.SyncInterval <= 0 {
		return apperrors.Validationf("sync_interval must be positive, got %s", c.SyncInterval)
	}
	// The env override may legitimately carry a password; the file may not.
	if c.Connection != "" && !c.connFromEnv && postgres.HasEmbeddedCredentials(c.Connection) {
		return apperrors.Validationf("connection in the config file must not embed a password; use the keyring or %s", constants.EnvDBConnection)
	}
	return nil
}

// Location returns the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return utils.LoadLocation(c.Timezone)
}
