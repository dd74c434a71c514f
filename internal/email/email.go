package email

import (
	"context"
	"strings"
)

// Email represents a plain-text message to be relayed.
type Email struct {
	To       []string // Recipient email addresses
	Subject  string   // Email subject
	TextBody string   // Plain text body
}

// Sender relays a message and reports the outcome.
// Implementations never panic or return transport errors directly:
// every failure is described by the returned Result.
type Sender interface {
	Send(ctx context.Context, email *Email) Result
}

// Result is the outcome of one send attempt.
type Result struct {
	// Sent is true when the SMTP server accepted the message.
	Sent bool

	// Message describes the outcome for logs and callers.
	Message string

	// Err is the underlying failure, nil when Sent is true.
	Err error
}

// Succeeded builds a successful Result for the given recipients.
func Succeeded(to []string) Result {
	return Result{
		Sent:    true,
		Message: "Email sent successfully to " + strings.Join(to, ", "),
	}
}

// Failed builds a failure Result carrying err's text.
func Failed(err error) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result{Message: msg, Err: err}
}
