package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/dukerupert/mailrelay/internal/settings"
)

// DefaultTimeout bounds a whole SMTP session: dial, handshake, and every
// command up to QUIT.
const DefaultTimeout = 30 * time.Second

// SMTPSender implements Sender using go-mail.
// Each Send opens its own implicit-TLS session; nothing is pooled between
// calls.
type SMTPSender struct {
	settings  *settings.Settings
	timeout   time.Duration
	tlsConfig *tls.Config
	logger    *slog.Logger
}

// SenderOption customizes an SMTPSender.
type SenderOption func(*SMTPSender)

// WithTimeout sets the session deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) SenderOption {
	return func(s *SMTPSender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTLSConfig overrides the client TLS configuration. ServerName defaults
// to the configured SMTP host when unset.
func WithTLSConfig(cfg *tls.Config) SenderOption {
	return func(s *SMTPSender) {
		s.tlsConfig = cfg
	}
}

// WithLogger sets the logger used for send diagnostics.
func WithLogger(logger *slog.Logger) SenderOption {
	return func(s *SMTPSender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSMTPSender creates a sender that relays through the server in cfg.
func NewSMTPSender(cfg *settings.Settings, opts ...SenderOption) *SMTPSender {
	s := &SMTPSender{
		settings: cfg,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send relays email through the configured SMTP server.
// Credentials are checked before any connection is attempted.
func (s *SMTPSender) Send(ctx context.Context, email *Email) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("smtp: panic while sending", "panic", r)
			result = Failed(fmt.Errorf("smtp: %v", r))
		}
	}()

	if missing := s.settings.MissingCredentials(); len(missing) > 0 {
		err := &CredentialsError{Missing: missing}
		s.logger.Warn("smtp: refusing to send", "error", err)
		return Failed(err)
	}

	s.logger.Info("smtp: preparing email",
		"to", email.To,
		"from", s.settings.FromEmail,
		"subject", email.Subject,
		"host", s.settings.SMTPServer,
		"port", s.settings.SMTPPort,
	)

	msg, err := s.buildMessage(email)
	if err != nil {
		return Failed(err)
	}

	dialer := s.newSessionDialer(ctx)
	defer dialer.release()

	client, err := mail.NewClient(s.settings.SMTPServer, s.buildClientOptions(dialer)...)
	if err != nil {
		return Failed(fmt.Errorf("failed to create SMTP client: %w", err))
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error("smtp: failed to send email", "error", err)
		return Failed(fmt.Errorf("failed to send email: %w", err))
	}

	s.logger.Info("smtp: email sent successfully", "to", email.To)
	return Succeeded(email.To)
}

// buildMessage creates a plain-text message with Subject, From and To headers.
func (s *SMTPSender) buildMessage(email *Email) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(s.settings.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}

	msg.Subject(email.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, email.TextBody)

	return msg, nil
}

// buildClientOptions returns go-mail client options based on configuration.
// The connection is always implicit TLS, whatever the port, and the dialer
// owns the TLS handshake, so PLAIN is requested explicitly instead of
// auto-discovered.
func (s *SMTPSender) buildClientOptions(dialer *sessionDialer) []mail.Option {
	return []mail.Option{
		mail.WithPort(s.settings.SMTPPort),
		mail.WithTimeout(s.timeout),
		mail.WithSSL(),
		mail.WithDialContextFunc(dialer.DialContext),
		mail.WithUsername(s.settings.FromEmail),
		mail.WithPassword(s.settings.Password),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
	}
}

func (s *SMTPSender) newSessionDialer(ctx context.Context) *sessionDialer {
	cfg := &tls.Config{}
	if s.tlsConfig != nil {
		cfg = s.tlsConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = s.settings.SMTPServer
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	return &sessionDialer{
		sendCtx:   ctx,
		timeout:   s.timeout,
		tlsConfig: cfg,
	}
}

// sessionDialer opens implicit-TLS connections for one Send. Each
// connection carries a deadline of now+timeout and is closed as soon as
// the send's context is done, so a server that stalls after the greeting
// cannot hold the caller.
type sessionDialer struct {
	sendCtx   context.Context
	timeout   time.Duration
	tlsConfig *tls.Config

	mu    sync.Mutex
	stops []func() bool
}

// DialContext satisfies mail.DialContextFunc.
func (d *sessionDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	var nd net.Dialer
	raw, err := nd.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if err := raw.SetDeadline(time.Now().Add(d.timeout)); err != nil {
		_ = raw.Close()
		return nil, err
	}

	stop := context.AfterFunc(d.sendCtx, func() {
		_ = raw.Close()
	})
	d.mu.Lock()
	d.stops = append(d.stops, stop)
	d.mu.Unlock()

	conn := tls.Client(raw, d.tlsConfig)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return conn, nil
}

// release detaches the connections from the send context.
func (d *sessionDialer) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, stop := range d.stops {
		stop()
	}
	d.stops = nil
}
