// Package mailer delivers transactional emails such as OTP codes.
package mailer

import (
	"context"
	"fmt"
	"geochat/contract"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const (
	ConsoleBackend = "console"
	SMTPBackend    = "smtp"
)

// sendTimeout bounds a delivery when the caller context has no deadline.
const sendTimeout = 30 * time.Second

var (
	_ contract.Mailer = (*SMTPMailer)(nil)
	_ contract.Mailer = (*ConsoleMailer)(nil)
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// SMTPMailer sends through an SMTP relay, upgrading to TLS when offered.
type SMTPMailer struct {
	cfg  SMTPConfig
	dial dialFunc
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, dial: (&net.Dialer{Timeout: sendTimeout}).DialContext}
}

// Send gives up as soon as ctx is done, including while the relay is silent.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	var stops []func() bool
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()
	// go-mail only honours ctx while dialing, the conversation is bound here
	dial := func(dialCtx context.Context, network, address string) (net.Conn, error) {
		conn, err := m.dial(dialCtx, network, address)
		if err != nil {
			return nil, err
		}
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(sendTimeout)
		}
		if err = conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		stops = append(stops, context.AfterFunc(ctx, func() { _ = conn.Close() }))
		return conn, nil
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(sendTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(dial),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client for %s: %w", m.cfg.Host, err)
	}
	if err = client.DialAndSendWithContext(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("send mail to %s: %w", to, ctxErr)
		}
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// ConsoleMailer writes emails to the log instead of sending them.
type ConsoleMailer struct {
	log  *slog.Logger
	from string
}

func NewConsoleMailer(log *slog.Logger, from string) *ConsoleMailer {
	return &ConsoleMailer{log: log, from: from}
}

func (m *ConsoleMailer) Send(_ context.Context, to, subject, body string) error {
	m.log.Info("Email", "from", m.from, "to", to, "subject", subject, "body", body)
	return nil
}

// New picks the backend by name, anything but smtp is the console.
func New(backend string, cfg SMTPConfig, log *slog.Logger) contract.Mailer {
	if strings.EqualFold(backend, SMTPBackend) {
		return NewSMTPMailer(cfg)
	}
	return NewConsoleMailer(log, cfg.From)
}
