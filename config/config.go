// Package config loads repodb connection settings from a YAML file and the
// environment.
//
// Environment variables use the REPODB_ prefix and override the file:
//
//	REPODB_DIALECT=postgres
//	REPODB_DSN=postgres://localhost/app?sslmode=disable
//	REPODB_BATCH_SIZE=50
//	REPODB_REDIS_ADDR=localhost:6379
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"github.com/mikependon/repodb/dialect"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "REPODB_"

// Defaults applied to zero values.
const (
	DefaultBatchSize        = 10
	DefaultCacheExpiration  = 180 * time.Minute
	DefaultCommandCacheSize = 1024
)

// Config holds the settings of a connection.
type Config struct {
	// Dialect is one of the dialect names; it is derived from Driver when empty.
	Dialect string `yaml:"dialect" env:"DIALECT"`
	// Driver is the database/sql driver name; it defaults to the dialect.
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`

	BatchSize        int           `yaml:"batch_size" env:"BATCH_SIZE"`
	CacheExpiration  time.Duration `yaml:"cache_expiration" env:"CACHE_EXPIRATION"`
	CommandCacheSize int           `yaml:"command_cache_size" env:"COMMAND_CACHE_SIZE"`

	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// SlowQueryThreshold enables query statistics; executions slower than
	// the threshold are logged as warnings.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" env:"SLOW_QUERY_THRESHOLD"`

	Log   Log   `yaml:"log" envPrefix:"LOG_"`
	Redis Redis `yaml:"redis" envPrefix:"REDIS_"`
}

// Log configures the logger and the statement trace.
type Log struct {
	Level string `yaml:"level" env:"LEVEL"`
	// Statements enables the statement trace.
	Statements bool `yaml:"statements" env:"STATEMENTS"`
	// Parameters includes parameter values in the statement trace.
	Parameters bool `yaml:"parameters" env:"PARAMETERS"`
}

// Redis configures the redis result cache. It is disabled when Addr is
// empty.
type Redis struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Prefix   string `yaml:"prefix" env:"PREFIX"`
}

// Load reads the file at path, when path is not empty, applies the
// environment and the defaults, and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills the zero values.
func (c *Config) SetDefaults() {
	if c.Dialect == "" && c.Driver != "" {
		c.Dialect = dialect.Normalize(c.Driver)
	}
	c.Dialect = dialect.Normalize(c.Dialect)
	if c.Driver == "" {
		c.Driver = c.Dialect
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.CacheExpiration <= 0 {
		c.CacheExpiration = DefaultCacheExpiration
	}
	if c.CommandCacheSize <= 0 {
		c.CommandCacheSize = DefaultCommandCacheSize
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports every problem found in the configuration.
func (c Config) Validate() error {
	var errs []error
	if _, ok := dialect.Get(c.Dialect); !ok {
		errs = append(errs, fmt.Errorf("config: unknown dialect %q", c.Dialect))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("config: dsn is required"))
	} else if err := validateDSN(c.Dialect, c.DSN); err != nil {
		errs = append(errs, err)
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		errs = append(errs, errors.New("config: connection limits must not be negative"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateDSN(name, dsn string) error {
	switch name {
	case dialect.MySQL:
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return fmt.Errorf("config: invalid mysql dsn: %w", err)
		}
	case dialect.Postgres:
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if _, err := pq.ParseURL(dsn); err != nil {
				return fmt.Errorf("config: invalid postgres dsn: %w", err)
			}
		}
	}
	return nil
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	return l, nil
}
