// Package smtptest runs an in-process SMTP server for tests.
package smtptest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Message is a message accepted by the server.
type Message struct {
	Username string
	From     string
	To       []string
	Data     []byte
}

// Server is an implicit-TLS SMTP server on 127.0.0.1 that accepts AUTH
// PLAIN with a single username/password pair. Its certificate is
// generated per server; clients trust it through ClientTLSConfig.
type Server struct {
	Host string
	Port int

	username string
	password string
	roots    *x509.CertPool

	mu         sync.Mutex
	messages   []Message
	rejectData bool

	srv *smtp.Server
}

// NewServer starts a server and stops it when the test finishes.
func NewServer(tb testing.TB, username, password string) *Server {
	tb.Helper()

	s := &Server{
		username: username,
		password: password,
	}
	ln := s.listen(tb)

	s.srv = smtp.NewServer(&backend{server: s})
	s.srv.Domain = "localhost"
	s.srv.ReadTimeout = 10 * time.Second
	s.srv.WriteTimeout = 10 * time.Second

	go func() {
		_ = s.srv.Serve(ln)
	}()

	tb.Cleanup(func() {
		_ = s.srv.Close()
	})

	return s
}

// NewStalledServer starts a server that completes the TLS handshake and
// then never sends the SMTP greeting. Connections are held open until the
// test finishes.
func NewStalledServer(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{}
	ln := s.listen(tb)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
			go func() {
				_ = conn.(*tls.Conn).Handshake()
			}()
		}
	}()

	tb.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			_ = conn.Close()
		}
	})

	return s
}

// ClientTLSConfig returns a client configuration that trusts the server's
// certificate.
func (s *Server) ClientTLSConfig() *tls.Config {
	return &tls.Config{
		RootCAs:    s.roots,
		MinVersion: tls.VersionTLS12,
	}
}

// listen opens a TLS listener on a free loopback port and records its
// address and certificate pool.
func (s *Server) listen(tb testing.TB) net.Listener {
	tb.Helper()

	cert, roots, err := selfSignedCert()
	if err != nil {
		tb.Fatalf("smtptest: certificate: %v", err)
	}
	s.roots = roots

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		tb.Fatalf("smtptest: listen: %v", err)
	}

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	s.Host = host
	s.Port, _ = strconv.Atoi(port)
	return ln
}

// selfSignedCert creates a certificate valid for 127.0.0.1 and localhost.
func selfSignedCert() (tls.Certificate, *x509.CertPool, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, nil, err
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "smtptest"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		DNSNames:              []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, nil, err
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, nil, err
	}

	roots := x509.NewCertPool()
	roots.AddCert(leaf)

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}, roots, nil
}

// RejectData makes the server refuse message content with a 554 reply.
func (s *Server) RejectData(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectData = reject
}

// Messages returns a copy of the accepted messages.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Server) accept(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectData {
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 0, 0},
			Message:      "Transaction failed: rejected by test server",
		}
	}
	s.messages = append(s.messages, m)
	return nil
}

type backend struct {
	server *Server
}

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{server: b.server}, nil
}

type session struct {
	server   *Server
	username string
	msg      Message
}

func (s *session) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *session) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain {
		return nil, smtp.ErrAuthUnsupported
	}
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != s.server.username || password != s.server.password {
			return &smtp.SMTPError{
				Code:         535,
				EnhancedCode: smtp.EnhancedCode{5, 7, 8},
				Message:      "Authentication credentials invalid",
			}
		}
		s.username = username
		return nil
	}), nil
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	if s.username == "" {
		return smtp.ErrAuthRequired
	}
	s.msg = Message{Username: s.username, From: from}
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.msg.To = append(s.msg.To, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.msg.Data = data
	return s.server.accept(s.msg)
}

func (s *session) Reset() {
	s.msg = Message{}
}

func (s *session) Logout() error {
	return nil
}
