// Package config loads database, logging and query observability settings
// for ormx sessions.
package config

import "time"

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int           `mapstructure:"maxIdleConns" validate:"gte=0"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // e.g. "1h", "30m"
}

// DatabaseConfig holds connection settings.
type DatabaseConfig struct {
	Driver string     `mapstructure:"driver" validate:"required,oneof=postgres mysql sqlite3"`
	DSN    string     `mapstructure:"dsn"    validate:"required"`
	Pool   PoolConfig `mapstructure:"pool"`
}

// LoggingConfig selects the slog handler built by ormx.Open.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// QueryConfig controls per query logging, tracing and metrics.
type QueryConfig struct {
	SlowQueryThreshold time.Duration `mapstructure:"slowQueryThreshold"`
	LogQueries         bool          `mapstructure:"logQueries"`
	Tracing            bool          `mapstructure:"tracing"`
	Metrics            bool          `mapstructure:"metrics"`
}

// Config aggregates all settings.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Query    QueryConfig    `mapstructure:"query"`
}

// NewDefaultConfig returns a config with defaults applied. Driver and DSN
// must be provided by the caller.
func NewDefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Pool: PoolConfig{
				MaxIdleConns:    5,
				MaxOpenConns:    10,
				ConnMaxLifetime: time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Query: QueryConfig{
			SlowQueryThreshold: 200 * time.Millisecond,
		},
	}
}
