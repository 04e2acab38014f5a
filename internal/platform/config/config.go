// Package config reads the process configuration from the environment so
// main stays lean. Every knob has a development default; production overrides
// them through AUTHCORE_* variables.
package config

import (
	"os"
	"time"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr string

	// DatabaseURL selects the PostgreSQL backend. Empty means the in-memory
	// stores, which only make sense for development and tests.
	DatabaseURL string

	// RedisURL selects the Redis-backed revocation list. Empty falls back to
	// the in-memory list.
	RedisURL string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SweeperInterval time.Duration

	// TRLFailOnError makes logout fail when the revocation-list write fails,
	// instead of logging and succeeding.
	TRLFailOnError bool
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	signingKey := getenv("AUTHCORE_JWT_SIGNING_KEY", "")
	if signingKey == "" {
		// Development default - must be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Addr:            getenv("AUTHCORE_ADDR", ":8080"),
		DatabaseURL:     getenv("AUTHCORE_DATABASE_URL", ""),
		RedisURL:        getenv("AUTHCORE_REDIS_URL", ""),
		JWTSigningKey:   signingKey,
		JWTIssuer:       getenv("AUTHCORE_JWT_ISSUER", "authcore"),
		JWTAudience:     getenv("AUTHCORE_JWT_AUDIENCE", "authcore"),
		AccessTokenTTL:  getduration("AUTHCORE_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getduration("AUTHCORE_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SweeperInterval: getduration("AUTHCORE_SWEEPER_INTERVAL", time.Hour),
		TRLFailOnError:  os.Getenv("AUTHCORE_TRL_FAIL_ON_ERROR") == "true",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
