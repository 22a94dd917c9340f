package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for autotriage.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port              int
	Env               string
	RequestsPerMinute int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// AnalysisConfig carries the default run parameters and k-means settings.
type AnalysisConfig struct {
	NClusters     int
	Alpha         float64
	Cap           float64
	Seed          int64
	Restarts      int
	MaxIterations int
	LockTTL       time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

var validSchemes = map[string]bool{
	"postgres":   true,
	"postgresql": true,
	"sqlite3":    true,
	"sqlite":     true,
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory if one exists. Variables already set in the
// environment take precedence over .env entries.
// Returns an error with a descriptive message if any value is invalid.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:              envInt("AUTOTRIAGE_PORT", 8080),
			Env:               envString("AUTOTRIAGE_ENV", "development"),
			RequestsPerMinute: envInt("AUTOTRIAGE_REQUESTS_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             envString("DATABASE_URL", "sqlite3://feedbacks.db"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Analysis: AnalysisConfig{
			NClusters:     envInt("ANALYSIS_N_CLUSTERS", 5),
			Alpha:         envFloat("ANALYSIS_ALPHA", 0.1),
			Cap:           envFloat("ANALYSIS_CAP", 0.5),
			Seed:          int64(envInt("ANALYSIS_SEED", 42)),
			Restarts:      envInt("ANALYSIS_RESTARTS", 10),
			MaxIterations: envInt("ANALYSIS_MAX_ITERATIONS", 300),
			LockTTL:       envDuration("ANALYSIS_LOCK_TTL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envString("LOG_LEVEL", "info")),
			Format: strings.ToLower(envString("LOG_FORMAT", "text")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireRedis reports an error when no Redis URL is configured.
// The HTTP server needs Redis; the CLI does not.
func (c *Config) RequireRedis() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	return nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Database.URL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is invalid: %w", err)
	}
	if !validSchemes[u.Scheme] {
		return fmt.Errorf("DATABASE_URL scheme must be one of postgres, postgresql, sqlite3, sqlite; got %q", u.Scheme)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("AUTOTRIAGE_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestsPerMinute < 1 {
		return fmt.Errorf("AUTOTRIAGE_REQUESTS_PER_MINUTE must be at least 1, got %d", c.Server.RequestsPerMinute)
	}

	if c.Analysis.NClusters < 1 {
		return fmt.Errorf("ANALYSIS_N_CLUSTERS must be at least 1, got %d", c.Analysis.NClusters)
	}
	if c.Analysis.Alpha < 0 || math.IsNaN(c.Analysis.Alpha) {
		return fmt.Errorf("ANALYSIS_ALPHA must not be negative, got %v", c.Analysis.Alpha)
	}
	if c.Analysis.Cap < 0 || math.IsNaN(c.Analysis.Cap) {
		return fmt.Errorf("ANALYSIS_CAP must not be negative, got %v", c.Analysis.Cap)
	}
	if c.Analysis.Restarts < 1 {
		return fmt.Errorf("ANALYSIS_RESTARTS must be at least 1, got %d", c.Analysis.Restarts)
	}
	if c.Analysis.MaxIterations < 1 {
		return fmt.Errorf("ANALYSIS_MAX_ITERATIONS must be at least 1, got %d", c.Analysis.MaxIterations)
	}

	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
