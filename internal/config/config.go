package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the helpdesk core.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Monitor  MonitorConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Assist   AssistConfig
}

// AppConfig controls process level behavior.
type AppConfig struct {
	Name string
	Env  string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// MonitorConfig tunes the staleness monitor. The cadence is a tunable
// parameter, not a contract; the threshold defines SLA breach.
type MonitorConfig struct {
	PeriodSeconds      int
	StaleThresholdDays int
}

// PostgresConfig holds DB connection values. An empty DSN keeps the
// core on its in-memory stores.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values for the notification store.
// An empty Addr keeps the notification log in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AssistConfig points at the remote classification/summarization
// collaborator. An empty APIKey disables the remote call entirely and
// the documented fallbacks apply.
type AssistConfig struct {
	BaseURL        string
	APIKey         string
	ClassifyModel  string
	TextModel      string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "helpdesk-core"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Monitor: MonitorConfig{
			PeriodSeconds:      getEnvAsInt("MONITOR_PERIOD_SECONDS", 60),
			StaleThresholdDays: getEnvAsInt("STALE_THRESHOLD_DAYS", 15),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Assist: AssistConfig{
			BaseURL:        getEnv("ASSIST_BASE_URL", "https://generativelanguage.googleapis.com"),
			APIKey:         os.Getenv("ASSIST_API_KEY"),
			ClassifyModel:  getEnv("ASSIST_CLASSIFY_MODEL", "gemini-3-pro-preview"),
			TextModel:      getEnv("ASSIST_TEXT_MODEL", "gemini-3-flash-preview"),
			TimeoutSeconds: getEnvAsInt("ASSIST_TIMEOUT_SECONDS", 10),
		},
	}

	return cfg, nil
}

// Period returns the scan cadence as a duration.
func (m MonitorConfig) Period() time.Duration {
	if m.PeriodSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(m.PeriodSeconds) * time.Second
}

// StaleThreshold returns the SLA breach age as a duration.
func (m MonitorConfig) StaleThreshold() time.Duration {
	if m.StaleThresholdDays <= 0 {
		return 15 * 24 * time.Hour
	}
	return time.Duration(m.StaleThresholdDays) * 24 * time.Hour
}

// Timeout returns the remote call deadline.
func (a AssistConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
