// Package config loads zident's runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHome        = "."
	defaultMailTMURL   = "https://api.mail.tm"
	defaultHTTPTimeout = 5 * time.Second
	defaultLogLevel    = "info"

	// LogFile is the rotating log path, relative to Home.
	LogFile = "logs/auto_logs/identity_generator.log"
)

// Config captures runtime configuration.
type Config struct {
	Home        string // root for data/, logs/ and config/
	ConfigDir   string // lookup table files
	MailTMURL   string
	HTTPTimeout time.Duration
	LogLevel    string
	NoColor     bool
}

// Load reads an optional .env file from the working directory and then the
// ZIDENT_* environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Home:        getEnv("ZIDENT_HOME", defaultHome),
		MailTMURL:   getEnv("ZIDENT_MAILTM_URL", defaultMailTMURL),
		HTTPTimeout: defaultHTTPTimeout,
		LogLevel:    strings.ToLower(getEnv("ZIDENT_LOG_LEVEL", defaultLogLevel)),
		NoColor:     os.Getenv("NO_COLOR") != "",
	}
	cfg.ConfigDir = getEnv("ZIDENT_CONFIG_DIR", filepath.Join(cfg.Home, "config"))

	if v := os.Getenv("ZIDENT_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ZIDENT_HTTP_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("invalid ZIDENT_HTTP_TIMEOUT: must be positive")
		}
		cfg.HTTPTimeout = d
	}

	return cfg, nil
}

// LogPath returns the rotating log file under Home.
func (c Config) LogPath() string {
	return filepath.Join(c.Home, LogFile)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
