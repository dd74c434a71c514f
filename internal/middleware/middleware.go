package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/mailrelay/internal/domain"
)

type contextKey string

// ============================================================================
// MIDDLEWARE ERROR RESPONSE HELPERS
// ============================================================================
//
// These mirror handler.ErrorResponse but are self-contained to avoid
// circular imports (handler imports middleware for GetLogger).

// respondWithError writes a JSON {"detail": ...} error response and logs it.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := errorCodeToHTTPStatus(code)

	attrs := []any{
		"error", err.Error(),
		"code", code,
		"status", status,
	}

	logger := GetLogger(r.Context())
	if status >= 500 {
		logger.Error("middleware error", attrs...)
	} else {
		logger.Info("middleware error", attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"detail": domain.ErrorMessage(err),
	})
}

// errorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge // 413
	case domain.EUNPROCESSABLE:
		return http.StatusUnprocessableEntity // 422
	case domain.ETIMEOUT:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
