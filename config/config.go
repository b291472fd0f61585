// Package config resolves process-wide configuration from the environment,
// optionally seeded from .env files.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process-wide configuration consumed by the composition
// root.
type Config struct {
	// Maintenance loop.
	CleanupEnabled     bool
	CleanupInterval    time.Duration
	CleanupUnitTimeout time.Duration

	// Backends. Empty values disable the corresponding wiring.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseDSN   string

	// Cache defaults.
	CacheMaxEntries int
	CacheExpiration time.Duration

	// Worker locks. Empty means the default user cache directory.
	LockDir string

	// Observability.
	MetricsAddr string
	TraceStdout bool
	LogLevel    string
	TokenName   string
}

// Load reads .env/.env.local when present, then resolves configuration from
// WARDEN_* environment variables with sensible defaults.
func Load() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	v.SetEnvPrefix("warden")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("cleanup-enabled", true)
	v.SetDefault("cleanup-interval", 3600)
	v.SetDefault("cleanup-unit-timeout", 30)
	v.SetDefault("redis-db", 0)
	v.SetDefault("cache-max-entries", 0)
	v.SetDefault("cache-expiration", 0)
	v.SetDefault("metrics-addr", ":9105")
	v.SetDefault("log-level", "info")
	v.SetDefault("token-name", "warden_maintenance")

	return Config{
		CleanupEnabled:     v.GetBool("cleanup-enabled"),
		CleanupInterval:    time.Duration(v.GetInt("cleanup-interval")) * time.Second,
		CleanupUnitTimeout: time.Duration(v.GetInt("cleanup-unit-timeout")) * time.Second,
		RedisAddr:          v.GetString("redis-addr"),
		RedisPassword:      v.GetString("redis-password"),
		RedisDB:            v.GetInt("redis-db"),
		DatabaseDSN:        v.GetString("database-dsn"),
		CacheMaxEntries:    v.GetInt("cache-max-entries"),
		CacheExpiration:    time.Duration(v.GetInt("cache-expiration")) * time.Second,
		LockDir:            v.GetString("lock-dir"),
		MetricsAddr:        v.GetString("metrics-addr"),
		TraceStdout:        v.GetBool("trace-stdout"),
		LogLevel:           v.GetString("log-level"),
		TokenName:          v.GetString("token-name"),
	}
}
