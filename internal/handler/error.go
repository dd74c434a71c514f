package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/mailrelay/internal/domain"
	"github.com/dukerupert/mailrelay/internal/middleware"
	"github.com/dukerupert/mailrelay/internal/telemetry"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.EUNPROCESSABLE:
		return http.StatusUnprocessableEntity
	case domain.ETIMEOUT:
		return http.StatusServiceUnavailable
	case domain.EDELIVERY, domain.EINTERNAL:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse logs err and writes it as {"detail": ..., "fields": ...}.
// 5xx errors are also reported to Sentry when it is enabled.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"op", domain.ErrorOp(err),
		"status", status,
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]any{
			"code": code,
			"op":   domain.ErrorOp(err),
		})
	} else {
		logger.Info("request rejected", attrs...)
	}

	writeJSON(w, status, ErrorBody{
		Detail: domain.ErrorMessage(err),
		Fields: domain.GetValidationFields(err),
	})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
