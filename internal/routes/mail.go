package routes

import (
	"net/http"

	"github.com/dukerupert/mailrelay/internal/handler"
	"github.com/dukerupert/mailrelay/internal/middleware"
	"github.com/dukerupert/mailrelay/internal/router"
)

// RegisterMailRoutes registers the relay endpoint and the status endpoints.
func RegisterMailRoutes(r *router.Router, deps MailDeps) {
	// Root only; "/" alone would match every path
	r.Get("/{$}", deps.StatusHandler.Root)
	r.Get("/server-status", deps.StatusHandler.ServerStatus)
	r.Get("/tools-status", deps.StatusHandler.ToolsStatus)

	send := append([]router.Middleware{middleware.MaxBodySize(deps.MaxBodyBytes)}, deps.SendMiddleware...)
	r.Post("/send_email", deps.MailHandler.SendEmail, send...)
}

// RegisterOpsRoutes registers liveness and metrics endpoints.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", handler.Health)

	if deps.MetricsHandler != nil {
		r.Handle(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
}
