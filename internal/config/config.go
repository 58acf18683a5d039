package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL string
	RedisAddr   string
	RedisDB     int
	JWTSecret   string
	Port        string
	Environment string

	PrimaryProviderURL  string
	PrimaryProviderKey  string
	FallbackProviderURL string
	FallbackProviderKey string
	ProviderTimeout     time.Duration

	RateLimitEnrich RateLimitConfig
	EnrichCostCents int
	CacheTTL        time.Duration
	CacheCapacity   int
	TokenTTL        time.Duration
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:             parseInt(getEnv("REDIS_DB", "0"), 0),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret"),
		Port:                getEnv("PORT", "8080"),
		Environment:         getEnv("APP_ENV", "development"),
		PrimaryProviderURL:  getEnv("PRIMARY_PROVIDER_URL", "https://api.compound-search.example.com/v1/generate"),
		PrimaryProviderKey:  os.Getenv("PRIMARY_PROVIDER_KEY"),
		FallbackProviderURL: getEnv("FALLBACK_PROVIDER_URL", "https://api.web-search.example.com/v1/search"),
		FallbackProviderKey: os.Getenv("FALLBACK_PROVIDER_KEY"),
		ProviderTimeout:     parseDuration(getEnv("PROVIDER_TIMEOUT", "15s"), 15*time.Second),
		EnrichCostCents:     parseInt(getEnv("ENRICH_COST_CENTS", "1"), 1),
		CacheTTL:            parseDuration(getEnv("CACHE_TTL", "24h"), 24*time.Hour),
		CacheCapacity:       parseInt(getEnv("CACHE_CAPACITY", "1000"), 1000),
		TokenTTL:            parseDuration(getEnv("JWT_TTL", "24h"), 24*time.Hour),
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_ENRICH", "30/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_ENRICH value: %w", err)
	}
	cfg.RateLimitEnrich = rl

	return cfg, nil
}

// IsProduction reports whether production hardening (PII scrubbing) is enabled.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(input string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return fallback
	}
	return n
}
