package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the GASPAY portal backend.
type Config struct {
	Server    ServerConfig
	Feed      FeedConfig
	Payout    PayoutConfig
	Snapshot  SnapshotConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

// FeedConfig describes the published CSV feed and the refresh policy
// around it.
type FeedConfig struct {
	URL             string
	FetchTimeout    time.Duration
	CacheTTL        time.Duration
	TimestampColumn string
	CodeColumn      string
}

// PayoutConfig fixes the financial constants of the program.
type PayoutConfig struct {
	// PerReferral is credited for every qualifying event, in whole
	// currency units.
	PerReferral int64
	// WeekWindowDays is the rolling window behind "earnings this week".
	WeekWindowDays int
	// SummaryWindowDays is the default growth window for the program
	// summary when the caller does not pass one.
	SummaryWindowDays int
}

// SnapshotConfig configures the optional Redis-backed snapshot store used
// for warm starts. An empty Addr disables it.
type SnapshotConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

type RateLimitConfig struct {
	Enabled  bool
	APIRPS   float64
	APIBurst int
	OpsRPS   float64
	OpsBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("GASPAY_HTTP_ADDR", ":8080"),
			Env:             getEnv("GASPAY_ENV", "development"),
			ShutdownTimeout: getDurationEnv("GASPAY_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Feed: FeedConfig{
			URL:             getEnv("GASPAY_FEED_URL", ""),
			FetchTimeout:    getDurationEnv("GASPAY_FEED_FETCH_TIMEOUT", 15*time.Second),
			CacheTTL:        getDurationEnv("GASPAY_FEED_CACHE_TTL", 10*time.Second),
			TimestampColumn: getEnv("GASPAY_FEED_TIMESTAMP_COLUMN", "Timestamp"),
			CodeColumn:      getEnv("GASPAY_FEED_CODE_COLUMN", "Referral Code"),
		},
		Payout: PayoutConfig{
			PerReferral:       getInt64Env("GASPAY_PAYOUT_PER_REFERRAL", 100),
			WeekWindowDays:    getIntEnv("GASPAY_WEEK_WINDOW_DAYS", 7),
			SummaryWindowDays: getIntEnv("GASPAY_SUMMARY_WINDOW_DAYS", 7),
		},
		Snapshot: SnapshotConfig{
			Addr:     getEnv("GASPAY_REDIS_ADDR", ""),
			Password: getEnv("GASPAY_REDIS_PASSWORD", ""),
			DB:       getIntEnv("GASPAY_REDIS_DB", 0),
			Key:      getEnv("GASPAY_SNAPSHOT_KEY", "gaspay:feed:snapshot"),
			TTL:      getDurationEnv("GASPAY_SNAPSHOT_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getBoolEnv("GASPAY_RATE_LIMIT_ENABLED", true),
			APIRPS:   getFloatEnv("GASPAY_RATE_LIMIT_API_RPS", 50),
			APIBurst: getIntEnv("GASPAY_RATE_LIMIT_API_BURST", 25),
			OpsRPS:   getFloatEnv("GASPAY_RATE_LIMIT_OPS_RPS", 10),
			OpsBurst: getIntEnv("GASPAY_RATE_LIMIT_OPS_BURST", 5),
		},
		Log: LogConfig{
			Level:  getEnv("GASPAY_LOG_LEVEL", "info"),
			Format: getEnv("GASPAY_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("GASPAY_METRICS_ENABLED", true),
			Path:    getEnv("GASPAY_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("GASPAY_FEED_URL is required")
	}
	if c.Feed.CacheTTL <= 0 {
		return fmt.Errorf("GASPAY_FEED_CACHE_TTL must be positive")
	}
	if c.Payout.PerReferral <= 0 {
		return fmt.Errorf("GASPAY_PAYOUT_PER_REFERRAL must be positive")
	}
	if c.Payout.WeekWindowDays <= 0 {
		return fmt.Errorf("GASPAY_WEEK_WINDOW_DAYS must be positive")
	}
	if strings.TrimSpace(c.Feed.TimestampColumn) == "" || strings.TrimSpace(c.Feed.CodeColumn) == "" {
		return fmt.Errorf("feed column names must not be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getInt64Env(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
