// Package config loads runtime settings for the posts service: built-in
// defaults, overlaid by an optional YAML file, overlaid by environment
// variables.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the posts API server.
type Config struct {
	// Environment is "development" or "production"; production suppresses
	// internal error detail in HTTP responses.
	Environment string `yaml:"environment"`
	// Addr is the bind address of the HTTP endpoint.
	Addr string `yaml:"addr"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// ShutdownTimeout bounds the graceful-shutdown drain.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	Database Database `yaml:"database"`
}

// Database selects and tunes the relational store.
type Database struct {
	// Driver is "postgres" or "sqlite".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`

	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: the DSN is insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.Environment = "development"
	c.Addr = ":8080"
	c.LogLevel = "info"
	c.ShutdownTimeout = Duration(10 * time.Second)
	c.Database = Database{
		Driver:          "postgres",
		DSN:             "host=localhost port=5432 user=bloguser password=blogpass dbname=blogdb sslmode=disable",
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: Duration(5 * time.Minute),
	}
}

// Load builds a Config by applying defaults, then overlaying values from the
// YAML file named by CONFIG_FILE (when set), then from individual
// environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Addr = ":" + v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		c.Database.DSN = v
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database dsn must not be empty")
	}
	return nil
}

// IsProduction reports whether internal error detail must be withheld.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
