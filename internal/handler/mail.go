package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/mailrelay/internal/domain"
	"github.com/dukerupert/mailrelay/internal/email"
	"github.com/dukerupert/mailrelay/internal/middleware"
	"github.com/dukerupert/mailrelay/internal/telemetry"
)

// SendEmailRequest is the JSON body of POST /send_email.
type SendEmailRequest struct {
	Subject    string   `json:"subject" validate:"required"`
	Body       string   `json:"body" validate:"required"`
	Recipients []string `json:"recipients" validate:"required,min=1"`
}

// SendEmailDetails echoes what was sent.
type SendEmailDetails struct {
	Subject    string   `json:"subject"`
	Recipients []string `json:"recipients"`
}

// SendEmailResponse is returned when the SMTP server accepted the message.
type SendEmailResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Details SendEmailDetails `json:"details"`
}

// MailHandler relays JSON send requests to an email.Sender.
type MailHandler struct {
	sender   email.Sender
	metrics  *telemetry.MailMetrics
	logger   *slog.Logger
	validate *validator.Validate
}

// NewMailHandler creates a new mail handler. metrics may be nil.
func NewMailHandler(sender email.Sender, metrics *telemetry.MailMetrics, logger *slog.Logger) *MailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailHandler{
		sender:   sender,
		metrics:  metrics,
		logger:   logger,
		validate: newValidator(),
	}
}

// SendEmail handles POST /send_email
//
// Response codes:
// - 200 OK: the SMTP server accepted the message
// - 413: body larger than the configured limit
// - 422: malformed JSON or a failed field check; the sender is not called
// - 500: the send failed or the sender faulted
func (h *MailHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	const op = "mail.send"
	logger := middleware.GetLogger(r.Context(), h.logger)

	var req SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordFailed(telemetry.ReasonValidation, 0)
		ErrorResponse(w, r, decodeError(op, err))
		return
	}

	req.Subject = strings.TrimSpace(req.Subject)
	req.Body = strings.TrimSpace(req.Body)

	if err := validateStruct(h.validate, op, &req); err != nil {
		h.metrics.RecordFailed(telemetry.ReasonValidation, 0)
		ErrorResponse(w, r, err)
		return
	}

	msg := &email.Email{
		To:       req.Recipients,
		Subject:  req.Subject,
		TextBody: req.Body,
	}

	start := time.Now()
	result, err := h.send(r.Context(), msg)
	elapsed := time.Since(start)

	if err != nil {
		h.metrics.RecordFailed(telemetry.ReasonPanic, elapsed)
		ErrorResponse(w, r, domain.Internal(err, op, err.Error()))
		return
	}

	if !result.Sent {
		reason := telemetry.ReasonDelivery
		if errors.Is(result.Err, email.ErrCredentialsMissing) {
			reason = telemetry.ReasonCredentials
		}
		h.metrics.RecordFailed(reason, elapsed)
		ErrorResponse(w, r, domain.DeliveryFailed(result.Err, op, "Failed to send email: "+result.Message))
		return
	}

	h.metrics.RecordSent(len(req.Recipients), elapsed)
	logger.Info("email relayed",
		"recipients", len(req.Recipients),
		"duration", elapsed,
	)

	writeJSON(w, http.StatusOK, SendEmailResponse{
		Status:  "ok",
		Message: "Email sent successfully",
		Details: SendEmailDetails{
			Subject:    req.Subject,
			Recipients: req.Recipients,
		},
	})
}

// send calls the sender, turning a panic into an error carrying its text.
func (h *MailHandler) send(ctx context.Context, msg *email.Email) (result email.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	return h.sender.Send(ctx, msg), nil
}

// decodeError classifies a body decoding failure.
func decodeError(op string, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return domain.Errorf(domain.ETOOLARGE, op, "Request body too large")
	}
	return domain.Unprocessable(op, "Invalid request body: "+err.Error())
}
