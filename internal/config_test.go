package internal

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENV", "LOG_LEVEL", "HOST", "PORT", "MAIL_CONFIG_PATH", "MAIL_ALLOW_UNCONFIGURED",
	"SMTP_TIMEOUT", "REQUEST_TIMEOUT", "MAX_BODY_KB", "CORS_ALLOWED_ORIGINS", "METRICS_ENABLED",
	"SENTRY_DSN", "SENTRY_ENABLED", "SENTRY_ENVIRONMENT", "SENTRY_RELEASE", "SENTRY_SAMPLE_RATE", "SENTRY_DEBUG",
}

// clearConfigEnv blanks every variable NewConfig reads; getEnv treats empty as unset.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:8000", cfg.Addr())
	assert.Equal(t, "./email.env", cfg.MailConfigPath)
	assert.False(t, cfg.AllowUnconfigured)
	assert.Equal(t, 30*time.Second, cfg.SMTPTimeout)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(1024*1024), cfg.MaxBodyBytes)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.Sentry.Enabled)
	assert.Equal(t, 1.0, cfg.Sentry.SampleRate)
}

func TestNewConfig_Overrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "9025")
	t.Setenv("MAIL_CONFIG_PATH", "/etc/mailrelay/email.env")
	t.Setenv("MAIL_ALLOW_UNCONFIGURED", "true")
	t.Setenv("SMTP_TIMEOUT", "5s")
	t.Setenv("REQUEST_TIMEOUT", "10s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("SENTRY_ENABLED", "1")
	t.Setenv("SENTRY_DSN", "https://key@sentry.example.com/1")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:9025", cfg.Addr())
	assert.Equal(t, "/etc/mailrelay/email.env", cfg.MailConfigPath)
	assert.True(t, cfg.AllowUnconfigured)
	assert.Equal(t, 5*time.Second, cfg.SMTPTimeout)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.Sentry.Enabled)
	assert.Equal(t, "https://key@sentry.example.com/1", cfg.Sentry.DSN)
}

func TestNewConfig_InvalidValuesFallBack(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ENV", "staging")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("SMTP_TIMEOUT", "soon")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.SMTPTimeout)
}

func TestNewConfig_RequestTimeoutMustExceedSMTPTimeout(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SMTP_TIMEOUT", "30s")
	t.Setenv("REQUEST_TIMEOUT", "30s")

	_, err := NewConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")
}

func TestNewLogger(t *testing.T) {
	t.Run("prod uses JSON", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "prod", "info").Info("hello", "k", "v")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "mailrelay", entry["service"])
		assert.Equal(t, "v", entry["k"])
	})

	t.Run("dev uses text", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "dev", "info").Info("hello")

		assert.True(t, strings.Contains(buf.String(), "msg=hello"))
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "dev", "warn")
		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}
