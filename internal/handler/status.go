package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/mailrelay/internal/middleware"
	"github.com/dukerupert/mailrelay/internal/settings"
)

// errSettingsNotLoaded is reported by /tools-status when no settings were supplied.
var errSettingsNotLoaded = errors.New("mail settings not loaded")

// RootResponse is returned by GET /.
type RootResponse struct {
	Status string `json:"status"`
}

// ServerStatusResponse describes the mail configuration. It never carries the password.
type ServerStatusResponse struct {
	ServerConfigured bool   `json:"server_configured"`
	FromEmail        string `json:"from_email"`
	SMTPServer       string `json:"smtp_server"`
	SMTPPort         int    `json:"smtp_port"`
}

// ToolsStatusResponse reports whether the sender has usable settings.
type ToolsStatusResponse struct {
	ToolsInitialized bool   `json:"tools_initialized"`
	FromEmail        string `json:"from_email,omitempty"`
	SMTPServer       string `json:"smtp_server,omitempty"`
	SMTPPort         int    `json:"smtp_port,omitempty"`
	ConfigPath       string `json:"config_path,omitempty"`
	Error            string `json:"error,omitempty"`
}

// StatusHandler serves the read-only status endpoints.
type StatusHandler struct {
	settings   *settings.Settings
	configPath string
	logger     *slog.Logger
}

// NewStatusHandler creates a status handler. cfg may be nil when the
// service started without a mail configuration.
func NewStatusHandler(cfg *settings.Settings, configPath string, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{
		settings:   cfg,
		configPath: configPath,
		logger:     logger,
	}
}

// Root handles GET /
func (h *StatusHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{Status: "Email service is running"})
}

// ServerStatus handles GET /server-status
func (h *StatusHandler) ServerStatus(w http.ResponseWriter, r *http.Request) {
	cfg := h.settings
	if cfg == nil {
		cfg = settings.Default()
	}

	fromEmail := cfg.FromEmail
	if fromEmail == "" {
		fromEmail = "Not configured"
	}

	writeJSON(w, http.StatusOK, ServerStatusResponse{
		ServerConfigured: cfg.Configured(),
		FromEmail:        fromEmail,
		SMTPServer:       cfg.SMTPServer,
		SMTPPort:         cfg.SMTPPort,
	})
}

// ToolsStatus handles GET /tools-status
//
// Always answers 200; a missing configuration or a fault while building
// the snapshot is reported in the body.
func (h *StatusHandler) ToolsStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.toolsSnapshot()
	if err != nil {
		middleware.GetLogger(r.Context(), h.logger).Warn("tools status unavailable", "error", err)
		resp = ToolsStatusResponse{ToolsInitialized: false, Error: err.Error()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StatusHandler) toolsSnapshot() (resp ToolsStatusResponse, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()

	if h.settings == nil {
		return resp, errSettingsNotLoaded
	}

	return ToolsStatusResponse{
		ToolsInitialized: true,
		FromEmail:        h.settings.FromEmail,
		SMTPServer:       h.settings.SMTPServer,
		SMTPPort:         h.settings.SMTPPort,
		ConfigPath:       h.configPath,
	}, nil
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		middleware.GetLogger(r.Context()).Warn("failed to write health response", "error", err)
	}
}
