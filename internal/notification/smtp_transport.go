package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"medication-alerts/internal/common/config"
)

// SMTPTransport speaks SMTP with optional STARTTLS and PLAIN auth.
type SMTPTransport struct {
	host        string
	port        int
	username    string
	password    string
	useTLS      bool
	dialTimeout time.Duration
}

func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		host:        cfg.Host,
		port:        cfg.Port,
		username:    cfg.Username,
		password:    cfg.Password,
		useTLS:      cfg.UseTLS,
		dialTimeout: 10 * time.Second,
	}
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Dial(ctx context.Context) (Session, error) {
	addr := net.JoinHostPort(t.host, fmt.Sprint(t.port))

	dialer := net.Dialer{Timeout: t.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open SMTP session: %w", err)
	}

	if t.useTLS {
		tlsConfig := &tls.Config{ServerName: t.host}
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	return &smtpSession{client: client, transport: t}, nil
}

type smtpSession struct {
	client    *smtp.Client
	transport *SMTPTransport
}

func (s *smtpSession) Authenticate(ctx context.Context) error {
	if s.transport.username == "" {
		return nil
	}
	auth := smtp.PlainAuth("", s.transport.username, s.transport.password, s.transport.host)
	if err := s.client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	return nil
}

func (s *smtpSession) Send(ctx context.Context, from string, to []string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending email: %w", err)
	}

	if err := s.client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := s.client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := s.client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return nil
}

// Close sends QUIT, falling back to dropping the connection when the relay
// does not answer.
func (s *smtpSession) Close() error {
	if err := s.client.Quit(); err != nil {
		return s.client.Close()
	}
	return nil
}
