package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-forecast-etl/internal/credential"
	"github.com/i474232898/weather-forecast-etl/internal/forecast/providers"
	"github.com/i474232898/weather-forecast-etl/internal/output"
	"github.com/i474232898/weather-forecast-etl/internal/scheduler"
)

var validate = validator.New()

type AppConfig struct {
	// Credential lookup. The token itself is read per run, never here.
	TokenKey   string `validate:"required"`
	DotenvPath string

	// Forecast query selectors.
	BaseURL   string `validate:"required,url"`
	Domain    string `validate:"required"`
	Province  string `validate:"required"`
	Amphoe    string `validate:"required"`
	StartHour int    `validate:"gte=0,lte=23"`
	Location  *time.Location

	// Outbound request behaviour.
	MaxAttempts    int     `validate:"gte=1"`
	RateLimitRPS   float64 `validate:"gte=0"`
	RateLimitBurst int     `validate:"gte=0"`
	HTTPTimeout    time.Duration

	// Artifact naming.
	OutputDir    string `validate:"required"`
	OutputPrefix string `validate:"required"`

	// Scheduling.
	ScheduleCron    string `validate:"required"`
	ScheduleRetries int    `validate:"gte=0"`
	RetryDelay      time.Duration
	RunTimeout      time.Duration
	RunOnce         bool

	// In-memory run history retention.
	StoreMaxHistory int           // max number of runs kept (0 = unlimited)
	StoreMaxAge     time.Duration // max age of runs (0 = unlimited)

	Port     string
	LogLevel string `validate:"oneof=debug info warn error"`
}

// Load reads configuration from environment with sensible defaults.
// The caller loads any .env file first.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.TokenKey = getenvDefault("TMD_TOKEN_KEY", credential.DefaultKey)
	cfg.DotenvPath = os.Getenv("TMD_DOTENV_PATH")

	cfg.BaseURL = getenvDefault("TMD_BASE_URL", providers.DefaultTMDBaseURL)
	cfg.Domain = getenvDefault("TMD_DOMAIN", "2")
	cfg.Province = getenvDefault("TMD_PROVINCE", "พิษณุโลก")
	cfg.Amphoe = getenvDefault("TMD_AMPHOE", "เมืองพิษณุโลก")

	if cfg.StartHour, err = getenvInt("TMD_START_HOUR", 14); err != nil {
		return nil, err
	}

	tz := getenvDefault("TMD_TIMEZONE", "Asia/Bangkok")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TMD_TIMEZONE: %w", err)
	}

	if cfg.MaxAttempts, err = getenvInt("TMD_MAX_ATTEMPTS", providers.DefaultMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getenvFloat("TMD_RATE_LIMIT_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getenvInt("TMD_RATE_LIMIT_BURST", 1); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	cfg.OutputDir = getenvDefault("OUTPUT_DIR", "data")
	cfg.OutputPrefix = getenvDefault("OUTPUT_PREFIX", output.DefaultPrefix)

	cfg.ScheduleCron = getenvDefault("SCHEDULE_CRON", scheduler.DefaultCron)
	if cfg.ScheduleRetries, err = getenvInt("SCHEDULE_RETRIES", 1); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = getenvDuration("SCHEDULE_RETRY_DELAY", "5m"); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getenvDuration("RUN_TIMEOUT", "5m"); err != nil {
		return nil, err
	}
	if cfg.RunOnce, err = getenvBool("RUN_ONCE", false); err != nil {
		return nil, err
	}

	// Store retention.
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 120); err != nil { // 30 days at 4 runs a day
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "720h"); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
