package routes

import (
	"net/http"

	"github.com/dukerupert/mailrelay/internal/handler"
	"github.com/dukerupert/mailrelay/internal/router"
)

// MailDeps contains dependencies for the relay and status routes
type MailDeps struct {
	MailHandler   *handler.MailHandler
	StatusHandler *handler.StatusHandler

	// MaxBodyBytes caps POST bodies. Zero uses the middleware default.
	MaxBodyBytes int64

	// SendMiddleware runs only on POST /send_email (e.g. a request timeout).
	SendMiddleware []router.Middleware
}

// OpsDeps contains dependencies for operational endpoints
type OpsDeps struct {
	// MetricsHandler serves Prometheus metrics. Nil disables /metrics.
	MetricsHandler http.Handler
}
