// Package config loads service configuration from the environment. A .env
// file, when present, is loaded by the binaries before this package reads
// anything.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"collabnotes.org/internal/auth"
)

// Environment names. Cookie security and similar hardening switch on
// EnvProduction.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config carries everything the API binary needs to start.
type Config struct {
	Addr           string
	Env            string
	PGDSN          string
	AuthSecret     string
	BcryptCost     int
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	RedisAddr      string
	AllowedOrigins []string
}

// Load reads configuration from NOTES_* environment variables, applying
// development defaults for everything except the signing secret, which has
// no safe default.
func Load() (Config, error) {
	cfg := Config{
		Addr:       getenv("NOTES_ADDR", ":8080"),
		Env:        getenv("NOTES_ENV", EnvDevelopment),
		PGDSN:      os.Getenv("NOTES_PG_DSN"),
		AuthSecret: strings.TrimSpace(os.Getenv("NOTES_AUTH_SECRET")),
		RedisAddr:  os.Getenv("NOTES_REDIS_ADDR"),
	}

	cost, err := intFromEnv("NOTES_BCRYPT_COST", auth.DefaultBcryptCost)
	if err != nil {
		return Config{}, err
	}
	cfg.BcryptCost = cost

	accessTTL, err := durationFromEnv("NOTES_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.AccessTTL = accessTTL

	refreshTTL, err := durationFromEnv("NOTES_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.RefreshTTL = refreshTTL

	if raw := os.Getenv("NOTES_ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("NOTES_AUTH_SECRET is required")
	}
	return cfg, nil
}

// IsProduction reports whether hardening intended for deployed environments
// should be active.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v, nil
}
