package email

import (
	"errors"
	"strings"
)

// ErrCredentialsMissing is returned when the sender has no FROM_EMAIL or PASSWORD.
var ErrCredentialsMissing = errors.New("SMTP credentials not configured")

// CredentialsError names the credential keys that are missing.
type CredentialsError struct {
	Missing []string
}

func (e *CredentialsError) Error() string {
	return ErrCredentialsMissing.Error() + " (missing " + strings.Join(e.Missing, ", ") + ")"
}

func (e *CredentialsError) Unwrap() error {
	return ErrCredentialsMissing
}
