package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/mailrelay/internal/domain"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.EUNPROCESSABLE, http.StatusUnprocessableEntity},
		{domain.ETIMEOUT, http.StatusServiceUnavailable},
		{domain.EDELIVERY, http.StatusInternalServerError},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.expected {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.expected)
			}
		})
	}
}

func TestErrorResponse_JSON(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedDetail string
	}{
		{
			name:           "unprocessable",
			err:            domain.Unprocessable("mail.send", "Invalid request body: EOF"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedDetail: "Invalid request body: EOF",
		},
		{
			name:           "delivery failure",
			err:            domain.DeliveryFailed(errors.New("535 auth failed"), "mail.send", "Failed to send email: 535 auth failed"),
			expectedStatus: http.StatusInternalServerError,
			expectedDetail: "Failed to send email: 535 auth failed",
		},
		{
			name:           "plain error surfaces its text",
			err:            errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectedDetail: "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/send_email", nil)
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, tt.err)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}

			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var body ErrorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if body.Detail != tt.expectedDetail {
				t.Errorf("detail = %q, want %q", body.Detail, tt.expectedDetail)
			}
			if body.Fields != nil {
				t.Errorf("fields = %v, want none", body.Fields)
			}
		})
	}
}

func TestErrorResponse_ValidationFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/send_email", nil)
	rec := httptest.NewRecorder()

	err := domain.NewValidationError("mail.send", "subject", "Subject cannot be empty")
	err = domain.AddFieldError(err, "body", "Body cannot be empty")

	ErrorResponse(rec, req, err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Detail != "Subject cannot be empty" {
		t.Errorf("detail = %q, want first field message", body.Detail)
	}
	if len(body.Fields) != 2 {
		t.Errorf("fields count = %d, want 2", len(body.Fields))
	}
	if body.Fields["body"] != "Body cannot be empty" {
		t.Errorf("fields[body] = %q", body.Fields["body"])
	}
}
