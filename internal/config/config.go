// Package config loads the stacks.yaml service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openlibops/stacks/internal/pg"
)

// DefaultPath is consulted when no --config flag is given.
const DefaultPath = "stacks.yaml"

// EnvDatabaseURL overrides database.url when set, so deployments can keep
// credentials out of the config file.
const EnvDatabaseURL = "STACKS_DATABASE_URL"

// Config is the full service configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	OIDC     OIDC     `yaml:"oidc"`
	Tracing  Tracing  `yaml:"tracing"`
	Cache    Cache    `yaml:"cache"`
}

// Server holds HTTP listener settings.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Database holds connection settings for Postgres.
type Database struct {
	URL  string `yaml:"url"`
	Pool struct {
		MaxConns          int32         `yaml:"max_conns"`
		MinConns          int32         `yaml:"min_conns"`
		MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime"`
		MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time"`
		HealthCheckPeriod time.Duration `yaml:"health_check_period"`
	} `yaml:"pool"`
}

// PoolConfig converts the YAML pool knobs into driver options.
func (d Database) PoolConfig() pg.PoolConfig {
	return pg.PoolConfig{
		MaxConns:          d.Pool.MaxConns,
		MinConns:          d.Pool.MinConns,
		MaxConnLifetime:   d.Pool.MaxConnLifetime,
		MaxConnIdleTime:   d.Pool.MaxConnIdleTime,
		HealthCheckPeriod: d.Pool.HealthCheckPeriod,
	}
}

// OIDC holds the token verification settings. An empty issuer disables
// verification entirely; every request is then treated as anonymous.
type OIDC struct {
	Issuer    string   `yaml:"issuer"`
	Audiences []string `yaml:"audiences"`
}

// Tracing toggles the OTel trace provider.
type Tracing struct {
	Enabled bool `yaml:"enabled"`
}

// Cache tunes the in-process tree cache. A zero TTL caches until the next
// write invalidates.
type Cache struct {
	Enabled bool          `yaml:"enabled"`
	TreeTTL time.Duration `yaml:"tree_ttl"`
}

// Load reads the config file at path. A missing file yields defaults so the
// service can run from environment variables alone.
func Load(path string) (Config, error) {
	cfg := defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 15 * time.Second
	cfg.Cache.Enabled = true
	cfg.Cache.TreeTTL = 5 * time.Minute
	return cfg
}

func applyEnv(cfg *Config) {
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		cfg.Database.URL = url
	}
}
