package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dukerupert/mailrelay/internal"
	"github.com/dukerupert/mailrelay/internal/email"
	"github.com/dukerupert/mailrelay/internal/handler"
	"github.com/dukerupert/mailrelay/internal/middleware"
	"github.com/dukerupert/mailrelay/internal/router"
	"github.com/dukerupert/mailrelay/internal/routes"
	"github.com/dukerupert/mailrelay/internal/settings"
	"github.com/dukerupert/mailrelay/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry
	cleanupSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Enabled:     cfg.Sentry.Enabled,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
		Debug:       cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer cleanupSentry()

	// Load mail settings
	mailSettings, loaded, err := loadMailSettings(cfg.MailConfigPath, cfg.AllowUnconfigured)
	if err != nil {
		return fmt.Errorf("mail settings failed: %w", err)
	}
	if loaded {
		logger.Info("Mail configuration loaded", "settings", mailSettings)
	} else {
		logger.Warn("Mail configuration not found, starting unconfigured",
			"path", cfg.MailConfigPath,
			"settings", mailSettings,
		)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(cfg, mailSettings, loaded, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting mail relay", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down mail relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// loadMailSettings loads the mail configuration file. With allowUnconfigured,
// an empty path or a missing file yields default settings and loaded=false;
// any other failure is returned.
func loadMailSettings(path string, allowUnconfigured bool) (s *settings.Settings, loaded bool, err error) {
	if path == "" {
		if !allowUnconfigured {
			return nil, false, errors.New("MAIL_CONFIG_PATH is empty")
		}
		return settings.Default(), false, nil
	}

	s, err = settings.Load(path)
	if err != nil {
		if allowUnconfigured && errors.Is(err, fs.ErrNotExist) {
			return settings.Default(), false, nil
		}
		return nil, false, err
	}
	return s, true, nil
}

// newHandler wires the sender, handlers, and middleware into the root handler.
func newHandler(cfg *internal.Config, mailSettings *settings.Settings, loaded bool, logger *slog.Logger) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics("mailrelay", reg)
	mailMetrics := telemetry.NewMailMetrics("mailrelay", reg)

	sender := email.NewSMTPSender(mailSettings,
		email.WithTimeout(cfg.SMTPTimeout),
		email.WithLogger(logger),
	)

	// Tools status reports "not initialized" when running on defaults.
	statusSettings := mailSettings
	if !loaded {
		statusSettings = nil
	}

	r := router.New(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
		router.Recovery(logger),
		telemetry.SentryMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig()),
		httpMetrics.Middleware,
	)

	routes.RegisterMailRoutes(r, routes.MailDeps{
		MailHandler:    handler.NewMailHandler(sender, mailMetrics, logger),
		StatusHandler:  handler.NewStatusHandler(statusSettings, cfg.MailConfigPath, logger),
		MaxBodyBytes:   cfg.MaxBodyBytes,
		SendMiddleware: []router.Middleware{middleware.Timeout(cfg.RequestTimeout)},
	})

	ops := routes.OpsDeps{}
	if cfg.MetricsEnabled {
		ops.MetricsHandler = httpMetrics.Handler()
	}
	routes.RegisterOpsRoutes(r, ops)

	// Preflight requests match no route, so CORS wraps the mux itself.
	return router.CORS(cfg.CORSAllowedOrigins)(r)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
