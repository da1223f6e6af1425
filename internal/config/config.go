// Package config defines the top-level configuration for the ledger daemon
// and provides loading and validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by LEDGER_* environment variables.
type Config struct {
	Ledger   LedgerConfig   `toml:"ledger"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// LedgerConfig holds the core state-machine parameters.
type LedgerConfig struct {
	// SettlementAuthority is the hex address of the only identity permitted
	// to apply fills.
	SettlementAuthority string `toml:"settlement_authority"`

	// SignatureWindow bounds how far a request's signed timestamp may drift
	// from server time before the request is rejected.
	SignatureWindow time.Duration `toml:"signature_window"`

	// Store selects the persistence backend: "postgres" or "memory".
	Store string `toml:"store"`

	// RunMigrations applies embedded migrations at startup.
	RunMigrations bool `toml:"run_migrations"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// RedisConfig holds Redis connection parameters. When Enabled is false the
// daemon runs with the in-process bus and no rate limiting.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the audit
// archiver. When Enabled is false no archiver runs.
type S3Config struct {
	Enabled         bool          `toml:"enabled"`
	Endpoint        string        `toml:"endpoint"`
	Region          string        `toml:"region"`
	Bucket          string        `toml:"bucket"`
	AccessKey       string        `toml:"access_key"`
	SecretKey       string        `toml:"secret_key"`
	UseSSL          bool          `toml:"use_ssl"`
	ForcePathStyle  bool          `toml:"force_path_style"`
	ArchivePrefix   string        `toml:"archive_prefix"`
	ArchiveInterval time.Duration `toml:"archive_interval"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port           int      `toml:"port"`
	CORSOrigins    []string `toml:"cors_origins"`
	RateLimitRPS   int      `toml:"rate_limit_rps"`
	AuthDisabled   bool     `toml:"auth_disabled"` // development only: trust X-Ledger-Caller
	ReadTimeoutSec int      `toml:"read_timeout_sec"`
}

// Defaults returns a Config populated with sensible defaults for local
// development.
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			SignatureWindow: 2 * time.Minute,
			Store:           "memory",
			RunMigrations:   true,
		},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "ledger",
			User:         "ledger",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		S3: S3Config{
			Region:          "us-east-1",
			ArchivePrefix:   "audit",
			ArchiveInterval: time.Hour,
		},
		Server: ServerConfig{
			Port:           8080,
			RateLimitRPS:   20,
			ReadTimeoutSec: 15,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for fatal inconsistencies.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Ledger.SettlementAuthority) == "" {
		return fmt.Errorf("config: ledger.settlement_authority is required")
	}
	switch c.Ledger.Store {
	case "memory", "postgres":
	default:
		return fmt.Errorf("config: unsupported ledger.store %q", c.Ledger.Store)
	}
	if c.Ledger.Store == "postgres" {
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
			return fmt.Errorf("config: postgres requires a dsn or host/database/user")
		}
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: s3.bucket is required when s3 is enabled")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return fmt.Errorf("config: s3 credentials are required when s3 is enabled")
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unsupported log_level %q", c.LogLevel)
	}
	return nil
}
