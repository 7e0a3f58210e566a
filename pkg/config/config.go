package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (watchlists and symbol metadata only)
	Database DatabaseConfig

	// Redis (price source cache)
	Redis RedisConfig

	// Upstream market data
	Yahoo YahooConfig

	// Pipeline defaults
	Pipeline PipelineConfig

	// Scheduler
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// YahooConfig holds Yahoo Finance chart API configuration.
type YahooConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64 // sustained requests per second against the chart API
	RateBurst  int
	CacheTTL   time.Duration // TTL for cached daily/quote responses
	UserAgent  string
}

// PipelineConfig holds default pipeline parameters.
type PipelineConfig struct {
	LookbackWeeks int
	BatchSize     int
	AnchorWeekday time.Weekday // week-ending anchor, Friday unless overridden
}

// ScheduleConfig holds the periodic rebuild configuration.
type ScheduleConfig struct {
	Enabled  bool
	CronSpec string
	List     string // watchlist name rebuilt on schedule
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
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

		Yahoo: YahooConfig{
			BaseURL:    getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			Timeout:    getEnvAsDuration("YAHOO_TIMEOUT", "15s"),
			RatePerSec: getEnvAsFloat("YAHOO_RATE_PER_SEC", 4.0),
			RateBurst:  getEnvAsInt("YAHOO_RATE_BURST", 8),
			CacheTTL:   getEnvAsDuration("YAHOO_CACHE_TTL", "10m"),
			UserAgent:  getEnv("YAHOO_USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"),
		},

		Pipeline: PipelineConfig{
			LookbackWeeks: getEnvAsInt("LOOKBACK_WEEKS", 26),
			BatchSize:     getEnvAsInt("BATCH_SIZE", 8),
			AnchorWeekday: getEnvAsWeekday("WEEK_ANCHOR_DAY", time.Friday),
		},

		Schedule: ScheduleConfig{
			Enabled:  getEnvAsBool("SCHEDULE_ENABLED", false),
			CronSpec: getEnv("SCHEDULE_CRON", "0 30 22 * * FRI"), // after US close
			List:     getEnv("SCHEDULE_LIST", "default"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.LookbackWeeks < 1 {
		return fmt.Errorf("LOOKBACK_WEEKS must be positive")
	}

	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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

func getEnvAsWeekday(key string, defaultValue time.Weekday) time.Weekday {
	valueStr := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if valueStr == "" {
		return defaultValue
	}

	days := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	for name, day := range days {
		if valueStr == name || valueStr == name[:3] {
			return day
		}
	}

	return defaultValue
}
