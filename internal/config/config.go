// Package config loads the service configuration from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `mapstructure:"ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBDriver selects the database/sql driver: pgx or postgres (lib/pq).
	DBDriver string `mapstructure:"DB_DRIVER"`
	// Store selects the user store: postgres or memory.
	Store string `mapstructure:"STORE"`
	// JWTSecret signs login tokens.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// BcryptCost is the bcrypt work factor (4-31).
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// CORSOrigins is a comma-separated allow list, or "*".
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	// RateLimit is the number of requests per minute allowed per client IP.
	// Zero disables the limiter.
	RateLimit int `mapstructure:"RATE_LIMIT"`
}

// NewViper loads .env (if present) and returns a viper instance reading the
// environment with every key defaulted. Env vars override .env.
func NewViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ADDR", ":5001")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_DRIVER", DriverPgx)
	v.SetDefault("STORE", StorePostgres)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT", 100)
	return v
}

// Load is FromViper(NewViper()).
func Load() (Config, error) {
	return FromViper(NewViper())
}

// FromViper decodes and sanity-checks the config held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))

	if cfg.Addr == "" {
		return Config{}, errors.New("config: ADDR must be set")
	}
	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return Config{}, fmt.Errorf("config: STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}
	if cfg.DBDriver != DriverPgx && cfg.DBDriver != DriverPq {
		return Config{}, fmt.Errorf("config: DB_DRIVER must be %q or %q, got %q", DriverPgx, DriverPq, cfg.DBDriver)
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.RateLimit < 0 {
		return Config{}, errors.New("config: RATE_LIMIT cannot be negative")
	}

	return cfg, nil
}

// ValidateServe checks the settings the HTTP server cannot start without.
func (c Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.Store == StorePostgres && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set when STORE=postgres")
	}
	return nil
}

// CORSOriginList splits CORSOrigins into trimmed, non-empty entries.
func (c Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
