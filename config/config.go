// ABOUTME: Runtime configuration for dealpulse
// ABOUTME: Merges defaults, the XDG config file, a .env file and DEALPULSE_* environment overrides
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	AppName        = "dealpulse"
	ConfigFileName = "config.json"
	EnvPrefix      = "DEALPULSE_"

	BackendSQLite = "sqlite"
	BackendCharm  = "charm"

	DefaultSchedulerConcurrency = 4

	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"
)

// Config holds settings shared by the CLI and the MCP server.
type Config struct {
	DBPath    string `json:"db_path,omitempty"`
	Backend   string `json:"backend,omitempty"`
	LogLevel  string `json:"log_level,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
	CharmHost string `json:"charm_host,omitempty"`

	// AutoSync pushes charm writes to the server as they happen.
	AutoSync bool `json:"auto_sync"`

	SchedulerConcurrency int `json:"scheduler_concurrency,omitempty"`

	// SchedulerRate caps deals processed per second. Zero means unthrottled.
	SchedulerRate float64 `json:"scheduler_rate,omitempty"`

	path string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DBPath:               DefaultDBPath(),
		Backend:              BackendSQLite,
		LogLevel:             "info",
		CharmHost:            DefaultCharmHost,
		AutoSync:             true,
		SchedulerConcurrency: DefaultSchedulerConcurrency,
	}
}

// DefaultDBPath is the SQLite file under the XDG data directory.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

// DefaultPath is the config file under the XDG config directory.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Load reads the config file at the XDG location and a .env file in the
// working directory, then applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath(), ".env")
}

// LoadFrom is Load with explicit file locations. Missing files are not errors.
func LoadFrom(path, envFile string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile layers the config file over the defaults, without environment
// overrides.
func readFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if cfg.CharmHost == "" {
		cfg.CharmHost = DefaultCharmHost
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := env("BACKEND"); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := env("AGENT_ID"); v != "" {
		c.AgentID = v
	}
	if v := env("CHARM_HOST"); v != "" {
		c.CharmHost = v
	}
	if v := env("AUTO_SYNC"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sAUTO_SYNC %q: %w", EnvPrefix, v, err)
		}
		c.AutoSync = b
	}
	if v := env("SCHEDULER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sSCHEDULER_CONCURRENCY %q: %w", EnvPrefix, v, err)
		}
		c.SchedulerConcurrency = n
	}
	if v := env("SCHEDULER_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSCHEDULER_RATE %q: %w", EnvPrefix, v, err)
		}
		c.SchedulerRate = f
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

// Validate rejects settings the rest of the program cannot act on.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendCharm:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendSQLite, BackendCharm)
	}
	if c.SchedulerConcurrency < 1 {
		return fmt.Errorf("scheduler concurrency must be at least 1, got %d", c.SchedulerConcurrency)
	}
	if c.SchedulerRate < 0 {
		return fmt.Errorf("scheduler rate must not be negative, got %g", c.SchedulerRate)
	}
	if _, err := c.Agent(); err != nil {
		return err
	}
	return nil
}

// Agent parses AgentID. An empty value is the system agent (uuid.Nil).
func (c *Config) Agent() (uuid.UUID, error) {
	if c.AgentID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(c.AgentID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid agent id %q: %w", c.AgentID, err)
	}
	return id, nil
}

// Path returns where Save writes the config.
func (c *Config) Path() string {
	if c.path == "" {
		return DefaultPath()
	}
	return c.path
}

// Save persists the config file with owner-only permissions.
func (c *Config) Save() error {
	path := c.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// SetAutoSync flips AutoSync and writes only that change into the config
// file, so flag and environment overrides of this run are not persisted.
func (c *Config) SetAutoSync(enabled bool) error {
	c.AutoSync = enabled

	stored, err := readFile(c.Path())
	if err != nil {
		return err
	}
	stored.AutoSync = enabled
	return stored.Save()
}
