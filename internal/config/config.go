// Package config reads the service configuration from the environment and
// an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
)

const (
	BackendRanges = "ranges"
	BackendMMDB   = "mmdb"
)

// Config holds every setting of the service.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080" toml:"port"`
	GRPCPort string `env:"GRPC_PORT" envDefault:"9090" toml:"grpc_port"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" toml:"log_level"`

	// Backend selects the lookup implementation: "ranges" serves the JSON
	// range tables in DataDir, "mmdb" a MaxMind database at MMDBPath.
	Backend  string `env:"BACKEND" envDefault:"ranges" toml:"backend"`
	DataDir  string `env:"DATA_DIR" toml:"data_dir"`
	MMDBPath string `env:"MMDB_PATH" toml:"mmdb_path"`

	LoadIPv6 bool `env:"LOAD_IPV6" envDefault:"true" toml:"load_ipv6"`
	Strict   bool `env:"STRICT" toml:"strict"`
	Watch    bool `env:"WATCH" toml:"watch"`

	// LookupCacheSize is the number of answers memoized in front of the
	// backend. Zero disables the cache.
	LookupCacheSize int64 `env:"LOOKUP_CACHE_SIZE" envDefault:"0" toml:"lookup_cache_size"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from environ, or from the process
// environment when environ is nil. Keys in the file named by CONFIG_FILE
// take precedence over environment values.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	path := os.Getenv("CONFIG_FILE")
	if environ != nil {
		path = environ["CONFIG_FILE"]
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.Backend = strings.ToLower(cfg.Backend)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendRanges:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required for the ranges backend"))
		}
	case BackendMMDB:
		if c.MMDBPath == "" {
			errs = append(errs, errors.New("MMDB_PATH is required for the mmdb backend"))
		}
		if c.Watch {
			errs = append(errs, errors.New("WATCH is only supported by the ranges backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.LookupCacheSize < 0 {
		errs = append(errs, fmt.Errorf("LOOKUP_CACHE_SIZE must not be negative, got %d", c.LookupCacheSize))
	}

	return errors.Join(errs...)
}
