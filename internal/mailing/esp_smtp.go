package mailing

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/go-gomail/gomail"

	"github.com/pitchperfect/waitlist/internal/config"
	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/pkg/logger"
	"github.com/pitchperfect/waitlist/internal/service/sending"
)

// SMTPTransport delivers through an SMTP relay. Open dials, upgrades with
// STARTTLS when offered and authenticates once; the session is reused for
// every message of the batch. Port 465 uses implicit TLS.
type SMTPTransport struct {
	cfg     config.SMTPConfig
	timeout time.Duration
}

// NewSMTPTransport creates an SMTP transport for the relay in cfg. timeout
// bounds the dial and each message's SMTP exchange.
func NewSMTPTransport(cfg config.SMTPConfig, timeout time.Duration) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, timeout: timeout}
}

// Mode implements sending.Transport.
func (t *SMTPTransport) Mode() string { return sending.ModeSMTP }

// Open implements sending.Transport.
func (t *SMTPTransport) Open(ctx context.Context) (sending.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", sending.ErrTransportUnavailable, err)
	}
	s, err := t.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: smtp %s:%d: %v", sending.ErrTransportUnavailable, t.cfg.Host, t.cfg.Port, err)
	}
	return s, nil
}

func (t *SMTPTransport) dial(ctx context.Context) (*smtpSession, error) {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	dialer := &net.Dialer{Timeout: t.timeout}
	tlsCfg := &tls.Config{ServerName: t.cfg.Host}

	var (
		conn net.Conn
		err  error
	)
	if t.cfg.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	s := &smtpSession{conn: conn, timeout: t.timeout}
	s.arm(ctx)
	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.client = client

	if err := client.Hello("localhost"); err != nil {
		client.Close()
		return nil, err
	}
	if t.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				client.Close()
				return nil, fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if ok, _ := client.Extension("AUTH"); ok && t.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)); err != nil {
			client.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	return s, nil
}

type smtpSession struct {
	conn    net.Conn
	client  *smtp.Client
	timeout time.Duration
}

// arm sets the connection deadline to the earlier of the context deadline
// and now+timeout.
func (s *smtpSession) arm(ctx context.Context) {
	var deadline time.Time
	if s.timeout > 0 {
		deadline = time.Now().Add(s.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	s.conn.SetDeadline(deadline)
}

func (s *smtpSession) Send(ctx context.Context, msg *domain.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", sending.ErrRecipientRejected, err)
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextContent)
	m.AddAlternative("text/html", msg.HTMLContent)

	s.arm(ctx)
	if err := gomail.Send(gomail.SendFunc(s.transaction), m); err != nil {
		// A failed MAIL, RCPT or DATA leaves the transaction open.
		if rerr := s.client.Reset(); rerr != nil {
			logger.Warn("smtp reset after failed send", "recipient", msg.To, "error", rerr)
		}
		return fmt.Errorf("%w: %v", sending.ErrRecipientRejected, err)
	}
	return nil
}

func (s *smtpSession) transaction(from string, to []string, msg io.WriterTo) error {
	if err := s.client.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := s.client.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := s.client.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (s *smtpSession) Close() error {
	s.conn.SetDeadline(time.Now().Add(5 * time.Second))
	if err := s.client.Quit(); err != nil {
		s.client.Close()
		return err
	}
	return nil
}
