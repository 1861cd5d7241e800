package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime parameter of the engine.
type Config struct {
	DatabaseURL  string
	ServerPort   int
	JWTSecretKey string

	// Timezone is the fixed civil timezone every trigger time and season
	// day boundary is computed in.
	Timezone *time.Location
	// SeasonStart seeds the very first season when the database is empty.
	SeasonStart time.Time
	// TickInterval is the catch-up sweep cadence.
	TickInterval time.Duration

	AdminUser         string
	AdminPasswordHash string

	MatchEngineURL string
	LedgerURL      string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads configuration from the environment. A .env file is picked up
// when present; its absence is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	var err error
	if cfg.DatabaseURL, err = require("DATABASE_URL"); err != nil {
		return nil, err
	}
	if cfg.JWTSecretKey, err = require("JWT_SECRET_KEY"); err != nil {
		return nil, err
	}
	if cfg.AdminUser, err = require("ADMIN_USER"); err != nil {
		return nil, err
	}
	if cfg.AdminPasswordHash, err = require("ADMIN_PASSWORD_HASH"); err != nil {
		return nil, err
	}
	if cfg.MatchEngineURL, err = require("MATCH_ENGINE_URL"); err != nil {
		return nil, err
	}
	if cfg.LedgerURL, err = require("LEDGER_URL"); err != nil {
		return nil, err
	}
	if cfg.R2AccountID, err = require("R2_ACCOUNT_ID"); err != nil {
		return nil, err
	}
	if cfg.R2AccessKeyID, err = require("R2_ACCESS_KEY_ID"); err != nil {
		return nil, err
	}
	if cfg.R2SecretAccessKey, err = require("R2_SECRET_ACCESS_KEY"); err != nil {
		return nil, err
	}
	if cfg.R2BucketName, err = require("R2_BUCKET_NAME"); err != nil {
		return nil, err
	}
	cfg.R2PublicBaseURL = os.Getenv("R2_PUBLIC_BASE_URL")

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}
	cfg.Timezone = loc

	startStr, err := require("SEASON_START")
	if err != nil {
		return nil, err
	}
	start, err := time.ParseInLocation(time.RFC3339, startStr, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid SEASON_START %q (want RFC3339): %w", startStr, err)
	}
	cfg.SeasonStart = start

	intervalStr := os.Getenv("TICK_INTERVAL")
	if intervalStr == "" {
		intervalStr = "15m"
	}
	interval, err := time.ParseDuration(intervalStr)
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL %q", intervalStr)
	}
	cfg.TickInterval = interval

	return cfg, nil
}

func require(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s environment variable is not set", key)
	}
	return value, nil
}
