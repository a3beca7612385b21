// Package config loads runtime configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings.
type Config struct {
	DatabaseURL     string
	CoinGeckoAPIKey string

	VSCurrency   string
	SnapshotSize int
	CategorySize int

	DailyLookbackDays  int
	HourlyLookbackDays int
	DailyMinAge        time.Duration
	HourlyMinAge       time.Duration
	EnableHourly       bool

	PriceImportInterval   time.Duration
	GroupSelectorInterval time.Duration

	MetricsAddr string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CoinGeckoAPIKey: os.Getenv("COINGECKO_API_KEY"),
		VSCurrency:      envString("VS_CURRENCY", "usd"),
		MetricsAddr:     envString("METRICS_ADDR", ":9090"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CoinGeckoAPIKey == "" {
		return nil, fmt.Errorf("COINGECKO_API_KEY is required")
	}

	var err error
	if cfg.SnapshotSize, err = envInt("SNAPSHOT_SIZE", 250); err != nil {
		return nil, err
	}
	if cfg.CategorySize, err = envInt("CATEGORY_SNAPSHOT_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.DailyLookbackDays, err = envInt("DAILY_LOOKBACK_DAYS", 365); err != nil {
		return nil, err
	}
	if cfg.HourlyLookbackDays, err = envInt("HOURLY_LOOKBACK_DAYS", 90); err != nil {
		return nil, err
	}
	if cfg.DailyMinAge, err = envDuration("DAILY_MIN_AGE", 20*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HourlyMinAge, err = envDuration("HOURLY_MIN_AGE", time.Hour); err != nil {
		return nil, err
	}
	if cfg.EnableHourly, err = envBool("ENABLE_HOURLY", true); err != nil {
		return nil, err
	}
	if cfg.PriceImportInterval, err = envDuration("PRICE_IMPORT_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.GroupSelectorInterval, err = envDuration("GROUP_SELECTOR_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}
