package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Fill conventions for resolving stock entry/exit prices.
const (
	FillHighLow   = "highlow" // entry at bar high, exit at bar low (conservative)
	FillOpenClose = "ohlc"    // entry at bar open, exit at bar close
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data
	Polygon PolygonConfig

	// Position tracking
	Tracker TrackerConfig

	// Output
	ReportDir string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration. Redis backs the shared rate
// limiter; when disabled an in-process limiter is used instead.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// PolygonConfig holds Polygon.io API configuration.
type PolygonConfig struct {
	APIKey  string
	BaseURL string

	// Request quota. The free tier allows 5 calls/min; the limit is
	// enforced by the shared limiter, never by per-call-site sleeps.
	RateLimit   int
	RateWindow  time.Duration
	MinSpacing  time.Duration
	Concurrency int
}

// TrackerConfig holds position-ledger configuration.
type TrackerConfig struct {
	// BenchmarkTicker is the symbol whose bars are recorded alongside every
	// stock fill for alpha computation.
	BenchmarkTicker string

	// FillConvention selects which side of the bar fills use (FillHighLow
	// or FillOpenClose).
	FillConvention string

	// MaxFillLookahead bounds how many calendar days after a signal/drop
	// date the reconciler searches for a fillable trading day.
	MaxFillLookahead int
}

// Load reads configuration from environment variables. Only this function
// calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Polygon: PolygonConfig{
			APIKey:      getEnv("POLYGON_API_KEY", ""),
			BaseURL:     getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
			RateLimit:   getEnvAsInt("POLYGON_RATE_LIMIT", 5),
			RateWindow:  getEnvAsDuration("POLYGON_RATE_WINDOW", "1m"),
			MinSpacing:  getEnvAsDuration("POLYGON_MIN_SPACING", "12s"),
			Concurrency: getEnvAsInt("POLYGON_CONCURRENCY", 2),
		},

		Tracker: TrackerConfig{
			BenchmarkTicker:  getEnv("BENCHMARK_TICKER", "VOO"),
			FillConvention:   getEnv("FILL_CONVENTION", FillHighLow),
			MaxFillLookahead: getEnvAsInt("MAX_FILL_LOOKAHEAD", 5),
		},

		ReportDir: getEnv("REPORT_DIR", "reports"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Polygon.APIKey == "" {
		return fmt.Errorf("POLYGON_API_KEY is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Tracker.FillConvention != FillHighLow && c.Tracker.FillConvention != FillOpenClose {
		return fmt.Errorf("FILL_CONVENTION must be %q or %q", FillHighLow, FillOpenClose)
	}

	if c.Polygon.Concurrency < 1 {
		return fmt.Errorf("POLYGON_CONCURRENCY must be at least 1")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
