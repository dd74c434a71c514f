// Package settings holds the SMTP relay credentials and the loader for the
// KEY=value mail configuration file.
package settings

import (
	"log/slog"
	"strings"
)

// Recognized configuration keys.
const (
	KeyFromEmail  = "FROM_EMAIL"
	KeyPassword   = "PASSWORD"
	KeySMTPServer = "SMTP_SERVER"
	KeySMTPPort   = "SMTP_PORT"
)

// Defaults applied when the file omits the optional keys.
const (
	DefaultSMTPServer = "smtp.gmail.com"
	DefaultSMTPPort   = 465
)

// Settings is the relay configuration. It is built once at startup and
// never modified afterwards, so it is safe to share between requests.
type Settings struct {
	FromEmail  string
	Password   string
	SMTPServer string
	SMTPPort   int

	// Path is the file the settings were loaded from. Empty for Default().
	Path string
}

// Default returns settings with no credentials. The relay runs but cannot send.
func Default() *Settings {
	return &Settings{
		SMTPServer: DefaultSMTPServer,
		SMTPPort:   DefaultSMTPPort,
	}
}

// Configured reports whether both sender credentials are present.
func (s *Settings) Configured() bool {
	return s != nil && s.FromEmail != "" && s.Password != ""
}

// MissingCredentials lists the credential keys that are empty.
func (s *Settings) MissingCredentials() []string {
	var missing []string
	if s == nil || s.FromEmail == "" {
		missing = append(missing, KeyFromEmail)
	}
	if s == nil || s.Password == "" {
		missing = append(missing, KeyPassword)
	}
	return missing
}

// LogValue implements slog.LogValuer so the password is never logged.
func (s *Settings) LogValue() slog.Value {
	if s == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.String("smtp_server", s.SMTPServer),
		slog.Int("smtp_port", s.SMTPPort),
		slog.String("from_email", s.FromEmail),
		slog.String("password", strings.Repeat("*", len(s.Password))),
		slog.String("path", s.Path),
	)
}
