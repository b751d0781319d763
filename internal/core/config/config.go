package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aevon-lab/knocklog/internal/core/clock"
	"github.com/aevon-lab/knocklog/internal/core/storage"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "KNOCKLOG_"

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendMemory     = "memory"
)

// Config represents the top-level application config.
type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Storage  StorageConfig  `koanf:"storage" yaml:"storage"`
	Clock    ClockConfig    `koanf:"clock" yaml:"clock"`
	Logging  LoggingConfig  `koanf:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Rollover RolloverConfig `koanf:"rollover" yaml:"rollover"`
}

type ServerConfig struct {
	Port           int     `koanf:"port" yaml:"port"`
	Host           string  `koanf:"host" yaml:"host"`
	MaxBodySizeKB  int     `koanf:"max_body_size_kb" yaml:"max_body_size_kb"`
	Mode           string  `koanf:"mode" yaml:"mode"` // debug | release
	RateLimitRPS   float64 `koanf:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst" yaml:"rate_limit_burst"`
}

type StorageConfig struct {
	Backend             string        `koanf:"backend" yaml:"backend"`
	Path                string        `koanf:"path" yaml:"path"` // directory for filesystem, database file for sqlite
	DSN                 string        `koanf:"dsn" yaml:"dsn"`
	Key                 string        `koanf:"key" yaml:"key"`
	MaxOpenConns        int           `koanf:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns        int           `koanf:"max_idle_conns" yaml:"max_idle_conns"`
	AutoMigrate         bool          `koanf:"auto_migrate" yaml:"auto_migrate"`
	WriteMaxAttempts    int           `koanf:"write_max_attempts" yaml:"write_max_attempts"`
	WriteInitialBackoff time.Duration `koanf:"write_initial_backoff" yaml:"write_initial_backoff"`
	WriteTimeout        time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
}

type ClockConfig struct {
	// Timezone is an IANA name; "Local" uses the host zone.
	Timezone string `koanf:"timezone" yaml:"timezone"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level"`   // debug | info | warn | error
	Format string `koanf:"format" yaml:"format"` // text | json
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}

type RolloverConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                   8080,
		"server.host":                   "0.0.0.0",
		"server.max_body_size_kb":       16,
		"server.mode":                   "release",
		"server.rate_limit_rps":         20.0,
		"server.rate_limit_burst":       40,
		"storage.backend":               BackendFilesystem,
		"storage.path":                  "./data",
		"storage.dsn":                   "",
		"storage.key":                   storage.DefaultEventsKey,
		"storage.max_open_conns":        4,
		"storage.max_idle_conns":        4,
		"storage.auto_migrate":          true,
		"storage.write_max_attempts":    3,
		"storage.write_initial_backoff": "50ms",
		"storage.write_timeout":         "10s",
		"clock.timezone":                "Local",
		"logging.level":                 "info",
		"logging.format":                "text",
		"metrics.enabled":               true,
		"metrics.path":                  "/metrics",
		"rollover.enabled":              true,
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeKB <= 0 {
		return fmt.Errorf("server.max_body_size_kb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("server.rate_limit_rps must be >= 0")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("server.rate_limit_burst must be > 0 when rate limiting is enabled")
	}

	switch c.Storage.Backend {
	case BackendFilesystem, BackendSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
		}
	case BackendPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("storage.dsn is required for the postgres backend")
		}
		if c.Storage.MaxOpenConns <= 0 {
			return fmt.Errorf("storage.max_open_conns must be > 0")
		}
		if c.Storage.MaxIdleConns <= 0 {
			return fmt.Errorf("storage.max_idle_conns must be > 0")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported storage.backend %q (must be filesystem, sqlite, postgres, or memory)", c.Storage.Backend)
	}
	if err := storage.ValidateKey(c.Storage.Key); err != nil {
		return fmt.Errorf("invalid storage.key: %w", err)
	}
	if c.Storage.WriteMaxAttempts < 1 {
		return fmt.Errorf("storage.write_max_attempts must be >= 1")
	}
	if c.Storage.WriteInitialBackoff <= 0 {
		return fmt.Errorf("storage.write_initial_backoff must be > 0")
	}
	if c.Storage.WriteTimeout <= 0 {
		return fmt.Errorf("storage.write_timeout must be > 0")
	}

	if _, err := clock.LoadLocation(c.Clock.Timezone); err != nil {
		return fmt.Errorf("invalid clock.timezone %q: %w", c.Clock.Timezone, err)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format %q (must be text or json)", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return clock.LoadLocation(c.Clock.Timezone)
}

// Addr is the HTTP listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlogLevel maps the configured level name to a slog level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("invalid logging.level %q (must be debug, info, warn, or error)", c.Level)
	}
	return level, nil
}

// Load parses config from defaults, file and env, then validates it.
// A missing file at configPath is not an error; the defaults apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
			slog.Debug("Config file not found, using defaults", "path", configPath)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration Load produces with no file and no env.
func Default() *Config {
	k := koanf.New(".")
	for key, value := range defaults() {
		k.Set(key, value)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("config: defaults do not unmarshal: %v", err))
	}
	return &cfg
}

// WriteDefault writes the default configuration as YAML to path.
// An existing file is left untouched unless overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	raw, err := yamlv3.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}
