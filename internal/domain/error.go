package domain

import (
	"errors"
	"fmt"
)

// Application error codes.
// These map to HTTP status codes and determine user-facing messages.
const (
	EINVALID       = "invalid"         // 400 - Malformed request
	EUNPROCESSABLE = "unprocessable"   // 422 - Well-formed request that failed validation
	ETOOLARGE      = "too_large"       // 413 - Request body exceeds limit
	ENOTFOUND      = "not_found"       // 404 - Route or resource not found
	ETIMEOUT       = "timeout"         // 503 - Request processing exceeded its deadline
	EINTERNAL      = "internal"        // 500 - Internal server error
	EDELIVERY      = "delivery_failed" // 500 - SMTP relay rejected or failed the message
)

// Error represents an application error with a code and message.
// It implements the error interface and supports error wrapping.
type Error struct {
	// Code is a machine-readable error code (e.g., EINVALID, EDELIVERY).
	Code string

	// Message is a human-readable error message returned to the caller.
	Message string

	// Op is the operation where the error occurred (e.g., "mail.send").
	// Used for logging, not shown to callers.
	Op string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL for non-domain errors and EUNPROCESSABLE for validation errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return EUNPROCESSABLE
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

// ErrorMessage extracts the caller-facing message from an error.
// The relay reports fault text back to its caller, so unknown errors
// surface their own text rather than a generic placeholder.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message()
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}

	return err.Error()
}

// ErrorOp extracts the operation from an error (for logging).
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Op
	}

	return ""
}

// Errorf creates a new domain error with formatted message.
// Example: domain.Errorf(domain.EINVALID, "mail.decode", "unexpected field %q", name)
func Errorf(code, op, format string, args ...any) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// =============================================================================
// Validation Errors (field-level errors for request bodies)
// =============================================================================

// ValidationError represents one or more field validation failures.
// Fields keep the order in which they were added so the first failure
// is reported consistently.
type ValidationError struct {
	// Fields maps field names to error messages.
	Fields map[string]string

	// Op is the operation where validation failed.
	Op string

	order []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			if e.Op != "" {
				return fmt.Sprintf("%s: %s: %s", e.Op, field, msg)
			}
			return fmt.Sprintf("%s: %s", field, msg)
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: validation failed for %d fields", e.Op, len(e.Fields))
	}
	return fmt.Sprintf("validation failed for %d fields", len(e.Fields))
}

// Message returns the message of the first field that failed.
func (e *ValidationError) Message() string {
	for _, field := range e.order {
		if msg, ok := e.Fields[field]; ok {
			return msg
		}
	}
	for _, msg := range e.Fields {
		return msg
	}
	return "validation failed"
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.order = append(e.order, field)
	}
	e.Fields[field] = message
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(op, field, message string) error {
	ve := &ValidationError{Op: op}
	ve.add(field, message)
	return ve
}

// AddFieldError adds a field error to an existing ValidationError.
// If err is nil or not a ValidationError, a new one is created.
func AddFieldError(err error, field, message string) error {
	var ve *ValidationError
	if err != nil && errors.As(err, &ve) {
		ve.add(field, message)
		return ve
	}

	ve = &ValidationError{}
	ve.add(field, message)
	return ve
}

// GetValidationFields extracts field errors from a ValidationError.
// Returns nil if err is not a ValidationError.
func GetValidationFields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// =============================================================================
// Common errors (convenience)
// =============================================================================

// Unprocessable creates an error for a request that parsed but cannot be acted on.
func Unprocessable(op, message string) error {
	return &Error{
		Code:    EUNPROCESSABLE,
		Op:      op,
		Message: message,
	}
}

// DeliveryFailed wraps a failed relay attempt.
// The message is shown to the caller together with the transport error text.
func DeliveryFailed(err error, op, message string) error {
	return &Error{
		Code:    EDELIVERY,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Internal creates an internal error (wraps underlying error).
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
