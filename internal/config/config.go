package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "NilePay"
	defaultAppEnv         = "development"
	defaultLogLevel       = "info"
	defaultMinimumReserve = 100
	defaultCodePrefix     = "TKN"
	defaultCodeTTL        = 5 * time.Minute
	defaultSweepInterval  = 12 * time.Hour
	defaultSweepPageSize  = 10
	defaultStaleGrace     = 10 * time.Minute
)

// Config captures application runtime configuration loaded from environment
// variables. Monetary values are minor currency units.
type Config struct {
	AppName     string
	AppEnv      string
	LogLevel    string
	DatabaseURL string

	// RedisURL backs the pending-code index. Required wherever the transfer
	// engine is wired; the reconciliation daemon runs without it.
	RedisURL string

	// DBMaxConns caps the Postgres pool. Zero keeps the driver default.
	DBMaxConns int32

	// MinimumReserve is the balance a sender must retain after a transfer
	// debit.
	MinimumReserve int64

	// CodePrefix and CodeTTL shape the verification codes attached to
	// pending transfers.
	CodePrefix string
	CodeTTL    time.Duration

	// Sweep settings control the reconciliation job that refunds abandoned
	// transfers.
	SweepInterval   time.Duration
	SweepPageSize   int
	SweepStaleGrace time.Duration
}

// Load reads configuration values from the environment and populates a Config
// instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		MinimumReserve:  defaultMinimumReserve,
		CodePrefix:      getEnv("CODE_PREFIX", defaultCodePrefix),
		CodeTTL:         defaultCodeTTL,
		SweepInterval:   defaultSweepInterval,
		SweepPageSize:   defaultSweepPageSize,
		SweepStaleGrace: defaultStaleGrace,
	}

	if v := os.Getenv("MINIMUM_RESERVE"); v != "" {
		reserve, err := strconv.ParseInt(v, 10, 64)
		if err != nil || reserve < 0 {
			return Config{}, fmt.Errorf("invalid MINIMUM_RESERVE: %q", v)
		}
		cfg.MinimumReserve = reserve
	}

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		conns, err := strconv.ParseInt(v, 10, 32)
		if err != nil || conns <= 0 {
			return Config{}, fmt.Errorf("invalid DB_MAX_CONNS: %q", v)
		}
		cfg.DBMaxConns = int32(conns)
	}

	if v := os.Getenv("SWEEP_PAGE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			return Config{}, fmt.Errorf("invalid SWEEP_PAGE_SIZE: %q", v)
		}
		cfg.SweepPageSize = size
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"CODE_TTL", &cfg.CodeTTL},
		{"SWEEP_INTERVAL", &cfg.SweepInterval},
		{"SWEEP_STALE_GRACE", &cfg.SweepStaleGrace},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil || parsed <= 0 {
				return Config{}, fmt.Errorf("invalid %s: %q", d.key, v)
			}
			*d.target = parsed
		}
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
