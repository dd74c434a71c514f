package internal

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration. The SMTP account itself lives in
// the mail config file named by MailConfigPath.
type Config struct {
	Env      string
	LogLevel string
	Host     string
	Port     uint16

	// MailConfigPath is the KEY=VALUE file holding FROM_EMAIL, PASSWORD,
	// SMTP_SERVER and SMTP_PORT.
	MailConfigPath string

	// AllowUnconfigured starts the service with default mail settings when
	// MailConfigPath is empty or missing. Sends then fail until configured.
	AllowUnconfigured bool

	SMTPTimeout        time.Duration
	RequestTimeout     time.Duration
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
	MetricsEnabled     bool
	Sentry             SentryConfig
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN         string
	Enabled     bool
	Environment string
	Release     string
	SampleRate  float64
	Debug       bool
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

func NewConfig() (*Config, error) {
	// Try .env in the current directory, then walk up (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Debug(".env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:                getEnv("ENV", "dev"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Host:               getEnv("HOST", "127.0.0.1"),
		Port:               getEnvInt("PORT", 8000),
		MailConfigPath:     getEnv("MAIL_CONFIG_PATH", "./email.env"),
		AllowUnconfigured:  getEnvBool("MAIL_ALLOW_UNCONFIGURED", false),
		SMTPTimeout:        getEnvDuration("SMTP_TIMEOUT", 30*time.Second),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_KB", 1024)) * 1024,
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Enabled:     getEnvBool("SENTRY_ENABLED", false),
			Environment: getEnv("SENTRY_ENVIRONMENT", "development"),
			Release:     getEnv("SENTRY_RELEASE", ""),
			SampleRate:  getEnvFloat("SENTRY_SAMPLE_RATE", 1.0),
			Debug:       getEnvBool("SENTRY_DEBUG", false),
		},
	}

	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Port == 0 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535")
	}

	// The request deadline must leave room for the SMTP session to fail on its own.
	if cfg.RequestTimeout <= cfg.SMTPTimeout {
		return nil, fmt.Errorf("REQUEST_TIMEOUT (%s) must be greater than SMTP_TIMEOUT (%s)", cfg.RequestTimeout, cfg.SMTPTimeout)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var floatValue float64
		if _, err := fmt.Sscanf(value, "%f", &floatValue); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		slog.Default().Warn("Invalid duration. Using default", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
