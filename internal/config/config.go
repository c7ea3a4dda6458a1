// Package config loads service configuration from an optional YAML file and
// AUTOCLEAN_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tjfontaine/autoclean-api/internal/database/dialect"
)

// EnvPrefix prefixes every environment override. Nested keys use "__", so
// AUTOCLEAN_DATABASE__SERVER sets database.server.
const EnvPrefix = "AUTOCLEAN_"

// DefaultPath is the config file read when no path is given.
const DefaultPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RequestTimeout bounds reading a request and writing its response.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// DatabaseConfig describes the shared database the pool manager connects to.
type DatabaseConfig struct {
	Driver   string            `koanf:"driver"` // sqlite, postgres
	Server   string            `koanf:"server"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Database string            `koanf:"database"` // database name, or file path for sqlite
	Options  map[string]string `koanf:"options"`  // driver-specific DSN parameters

	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// Params returns the dialect connection parameters.
func (c DatabaseConfig) Params() dialect.ConnParams {
	return dialect.ConnParams{
		Server:   c.Server,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		Options:  c.Options,
	}
}

type LogConfig struct {
	Level     string `koanf:"level"`  // debug, info, warn, error
	Format    string `koanf:"format"` // json, text
	AddSource bool   `koanf:"add_source"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

type RateLimitConfig struct {
	Enabled           bool    `koanf:"enabled"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

var defaults = map[string]any{
	"server.port":                    8080,
	"server.shutdown_timeout":        "30s",
	"server.request_timeout":         "60s",
	"database.driver":                "sqlite",
	"database.database":              "./data/autoclean.db",
	"database.max_open_conns":        10,
	"database.max_idle_conns":        5,
	"database.conn_max_lifetime":     "30m",
	"database.connect_timeout":       "15s",
	"log.level":                      "info",
	"log.format":                     "json",
	"telemetry.service_name":         "autoclean-api",
	"rate_limit.requests_per_second": 50,
	"rate_limit.burst":               100,
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (a missing file is not an error), applies environment
// overrides and defaults, and validates the result. An empty path means
// DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, fmt.Errorf("set default %s: %w", key, err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Credentials may reference the environment as ${VAR}
	cfg.Database.User = substituteEnvVars(cfg.Database.User)
	cfg.Database.Password = substituteEnvVars(cfg.Database.Password)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if _, err := dialect.FromDriverName(c.Database.Driver); err != nil {
		return fmt.Errorf("config: database.driver: %w", err)
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d out of range", c.Database.Port)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q must be json or text", c.Log.Format)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("config: rate_limit needs positive requests_per_second and burst")
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
