package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fieldops/dispatch-api/pkg/scheduler"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	Port        string

	DatabaseURL string // Postgres DSN; empty selects SQLite at DataPath
	DataPath    string

	JWTSecret       string
	APIMasterSecret string

	// Tenant locking. An empty RedisAddr keeps locks in-process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	TravelBuffer     time.Duration
	HighOverlapRatio float64
	Timezone         string
	Location         *time.Location

	MetricsEnabled bool
}

// LoadDotEnv loads the first .env file found in the working directory or up
// to two levels above it. A missing file is not an error.
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:      getEnv("APP_ENV", "production"),
		Port:             getEnv("PORT", "8000"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DataPath:         getEnv("DATA_PATH", "dispatch.db"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		APIMasterSecret:  getEnv("API_MASTER_SECRET", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		LockTTL:          time.Duration(getEnvInt("LOCK_TTL_SECONDS", 30)) * time.Second,
		TravelBuffer:     time.Duration(getEnvInt("TRAVEL_BUFFER_MINUTES", 30)) * time.Minute,
		HighOverlapRatio: getEnvFloat("HIGH_OVERLAP_RATIO", 0.5),
		Timezone:         getEnv("DISPATCH_TIMEZONE", "UTC"),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values and resolves Location from Timezone.
func (c *Config) Validate() error {
	if c.TravelBuffer <= 0 {
		return fmt.Errorf("TRAVEL_BUFFER_MINUTES must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL_SECONDS must be positive")
	}
	if c.HighOverlapRatio <= 0 || c.HighOverlapRatio > 1 {
		return fmt.Errorf("HIGH_OVERLAP_RATIO must be in (0,1], got %v", c.HighOverlapRatio)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("DISPATCH_TIMEZONE: %w", err)
	}
	c.Location = loc
	if c.JWTSecret == "" && c.APIMasterSecret == "" {
		return fmt.Errorf("JWT_SECRET or API_MASTER_SECRET must be provided")
	}
	return nil
}

// Scheduler returns the scheduling policy derived from the configuration.
// Workloads are counted per calendar day in the dispatch timezone.
func (c *Config) Scheduler() scheduler.Config {
	cfg := scheduler.DefaultConfig()
	cfg.TravelBuffer = c.TravelBuffer
	cfg.HighOverlapRatio = c.HighOverlapRatio
	if loc := c.Location; loc != nil && loc != time.UTC {
		cfg.WorkloadPeriod = scheduler.CalendarDayIn(loc)
	}
	return cfg
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}
