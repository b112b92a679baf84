package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
)

// Config contains all runtime settings for the receptionist.
type Config struct {
	Env              string
	LogLevel         string
	MetricsAddr      string
	MetricsNamespace string
	ShutdownTimeout  time.Duration

	Timezone string
	Location *time.Location

	BookingStore string
	DatabaseURL  string
	RedisURL     string

	ExtractorMode   string
	OpenAIBaseURL   string
	OpenAIAPIKey    string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string
	ExtractTimeout  time.Duration
	ExtractAttempts int

	DefaultDurationMinutes int
	ServiceCatalogPath     string
}

// Load reads environment variables and applies safe defaults. A .env file in
// the working directory is read first; variables already set win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Env:                    envOrDefault("APP_ENV", "development"),
		LogLevel:               stringsTrimSpace("APP_LOG_LEVEL"),
		MetricsAddr:            stringsTrimSpace("APP_METRICS_ADDR"),
		MetricsNamespace:       envOrDefault("APP_METRICS_NAMESPACE", "receptionist"),
		ShutdownTimeout:        5 * time.Second,
		Timezone:               envOrDefault("APP_TIMEZONE", "UTC"),
		BookingStore:           strings.ToLower(envOrDefault("BOOKING_STORE", "auto")),
		DatabaseURL:            stringsTrimSpace("DATABASE_URL"),
		RedisURL:               stringsTrimSpace("REDIS_URL"),
		ExtractorMode:          strings.ToLower(envOrDefault("EXTRACTOR_MODE", "auto")),
		OpenAIBaseURL:          stringsTrimSpace("OPENAI_BASE_URL"),
		OpenAIAPIKey:           stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIModel:            envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:           stringsTrimSpace("GEMINI_API_KEY"),
		GeminiModel:            envOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		ExtractTimeout:         20 * time.Second,
		ExtractAttempts:        2,
		DefaultDurationMinutes: 45,
		ServiceCatalogPath:     stringsTrimSpace("SERVICE_CATALOG_PATH"),
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ExtractTimeout, err = durationFromEnv("EXTRACT_TIMEOUT", cfg.ExtractTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ExtractAttempts, err = intFromEnv("EXTRACT_ATTEMPTS", cfg.ExtractAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultDurationMinutes, err = intFromEnv("DEFAULT_DURATION_MINUTES", cfg.DefaultDurationMinutes)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	errb := oops.In("config").Code("invalid_config")

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return errb.With("timezone", c.Timezone).Wrapf(err, "APP_TIMEZONE is not a known time zone")
	}
	c.Location = loc

	switch c.BookingStore {
	case "auto", "memory", "postgres", "redis":
	default:
		return errb.Errorf("BOOKING_STORE must be one of auto, memory, postgres, redis (got %q)", c.BookingStore)
	}
	if c.BookingStore == "postgres" && c.DatabaseURL == "" {
		return errb.Errorf("BOOKING_STORE=postgres requires DATABASE_URL")
	}
	if c.BookingStore == "redis" && c.RedisURL == "" {
		return errb.Errorf("BOOKING_STORE=redis requires REDIS_URL")
	}

	switch c.ExtractorMode {
	case "auto", "rules", "openai", "gemini":
	default:
		return errb.Errorf("EXTRACTOR_MODE must be one of auto, rules, openai, gemini (got %q)", c.ExtractorMode)
	}
	if c.ExtractorMode == "openai" && c.OpenAIAPIKey == "" {
		return errb.Errorf("EXTRACTOR_MODE=openai requires OPENAI_API_KEY")
	}
	if c.ExtractorMode == "gemini" && c.GeminiAPIKey == "" {
		return errb.Errorf("EXTRACTOR_MODE=gemini requires GEMINI_API_KEY")
	}

	if c.ExtractTimeout < 100*time.Millisecond {
		return errb.Errorf("EXTRACT_TIMEOUT must be at least 100ms")
	}
	if c.ExtractAttempts <= 0 {
		return errb.Errorf("EXTRACT_ATTEMPTS must be positive")
	}
	if c.DefaultDurationMinutes < 1 || c.DefaultDurationMinutes > 480 {
		return errb.Errorf("DEFAULT_DURATION_MINUTES must be between 1 and 480")
	}
	return nil
}

// IsProduction reports whether APP_ENV selects production logging.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
