package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "message only",
			err: &Error{
				Code:    EINVALID,
				Message: "invalid input",
			},
			expected: "invalid input",
		},
		{
			name: "with operation",
			err: &Error{
				Code:    EINVALID,
				Op:      "mail.decode",
				Message: "invalid input",
			},
			expected: "mail.decode: invalid input",
		},
		{
			name: "with wrapped error",
			err: &Error{
				Code:    EDELIVERY,
				Op:      "mail.send",
				Message: "Failed to send email",
				Err:     errors.New("535 authentication failed"),
			},
			expected: "mail.send: Failed to send email: 535 authentication failed",
		},
		{
			name: "wrapped error without op",
			err: &Error{
				Code:    EINTERNAL,
				Message: "failed to encode",
				Err:     errors.New("broken pipe"),
			},
			expected: "failed to encode: broken pipe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &Error{
		Code:    EINTERNAL,
		Message: "wrapped",
		Err:     underlying,
	}

	if unwrapped := err.Unwrap(); unwrapped != underlying {
		t.Errorf("Error.Unwrap() = %v, want %v", unwrapped, underlying)
	}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find underlying error")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"domain error", Errorf(EINVALID, "mail.decode", "bad json"), EINVALID},
		{"wrapped domain error", fmt.Errorf("outer: %w", DeliveryFailed(errors.New("x"), "mail.send", "failed")), EDELIVERY},
		{"validation error", NewValidationError("mail.validate", "subject", "Subject cannot be empty"), EUNPROCESSABLE},
		{"plain error", errors.New("boom"), EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.expected {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"domain error", Unprocessable("mail.decode", "request body is not valid JSON"), "request body is not valid JSON"},
		{"plain error keeps its text", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
		{"validation error reports first field", func() error {
			err := NewValidationError("mail.validate", "body", "Body cannot be empty")
			return AddFieldError(err, "recipients", "Recipients list cannot be empty")
		}(), "Body cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.err); got != tt.expected {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorOp(t *testing.T) {
	if got := ErrorOp(Internal(nil, "mail.encode", "x")); got != "mail.encode" {
		t.Errorf("ErrorOp() = %q, want %q", got, "mail.encode")
	}
	if got := ErrorOp(NewValidationError("mail.validate", "subject", "x")); got != "mail.validate" {
		t.Errorf("ErrorOp() = %q, want %q", got, "mail.validate")
	}
	if got := ErrorOp(errors.New("plain")); got != "" {
		t.Errorf("ErrorOp() = %q, want empty", got)
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(ENOTFOUND, "router", "no route for %s", "/nope")

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("Errorf should return *Error")
	}
	if e.Code != ENOTFOUND {
		t.Errorf("Code = %q, want %q", e.Code, ENOTFOUND)
	}
	if e.Message != "no route for /nope" {
		t.Errorf("Message = %q", e.Message)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("mail.validate", "subject", "Subject cannot be empty")
	if got := err.Error(); got != "mail.validate: subject: Subject cannot be empty" {
		t.Errorf("Error() = %q", got)
	}

	err = AddFieldError(err, "body", "Body cannot be empty")
	err = AddFieldError(err, "recipients", "Recipients list cannot be empty")
	if got := err.Error(); got != "mail.validate: validation failed for 3 fields" {
		t.Errorf("Error() = %q", got)
	}

	fields := GetValidationFields(err)
	if len(fields) != 3 {
		t.Fatalf("fields count = %d, want 3", len(fields))
	}
	if fields["recipients"] != "Recipients list cannot be empty" {
		t.Errorf("fields[recipients] = %q", fields["recipients"])
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("expected *ValidationError")
	}
	if ve.Message() != "Subject cannot be empty" {
		t.Errorf("Message() = %q, want first added field", ve.Message())
	}
}

func TestAddFieldError_NewFromNil(t *testing.T) {
	err := AddFieldError(nil, "recipients", "Recipients list cannot be empty")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("AddFieldError(nil) should create a ValidationError")
	}
	if GetValidationFields(errors.New("plain")) != nil {
		t.Error("GetValidationFields(plain) should be nil")
	}
}
