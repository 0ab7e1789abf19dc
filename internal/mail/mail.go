// Package mail delivers registration links. SMTP is used when configured;
// otherwise messages are written to the log so local setups still work.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"sigil/internal/platform/config"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the SMTP mailer when cfg is enabled and the log mailer otherwise.
func New(cfg config.SMTPConfig, logger *slog.Logger) Mailer {
	if !cfg.Enabled {
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg)
}

// deliverer is the part of *gomail.Client the mailer needs.
type deliverer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer submits through a single relay. A client is dialled per send so
// ctx bounds the whole SMTP conversation.
type SMTPMailer struct {
	sender    string
	newClient func() (deliverer, error)
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPortPolicy(tlsPolicy(cfg.TLSPolicy)),
		gomail.WithTimeout(30 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	return &SMTPMailer{
		sender: cfg.Sender,
		newClient: func() (deliverer, error) {
			return gomail.NewClient(cfg.Host, opts...)
		},
	}
}

func tlsPolicy(name string) gomail.TLSPolicy {
	switch strings.ToLower(name) {
	case "mandatory":
		return gomail.TLSMandatory
	case "none":
		return gomail.NoTLS
	default:
		return gomail.TLSOpportunistic
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("mail: header injection in subject")
	}
	out, err := m.compose(msg)
	if err != nil {
		return err
	}
	client, err := m.newClient()
	if err != nil {
		return fmt.Errorf("mail: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("mail: send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.From(m.sender); err != nil {
		return nil, fmt.Errorf("mail: sender %q: %w", m.sender, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("mail: recipient: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return out, nil
}

// LogMailer never delivers. It logs the message so an operator can copy the
// link out of the server output.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "mail not configured, logging message instead",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

const registrationBody = `Hi %s,

An account has been created for you on %s with the username %s (%s).

Open the link below to register a passkey and finish setting up your account.
The link is valid for 24 hours.

%s
`

// NewRegistrationMessage builds the account setup email. origin is the host
// shown to the user in the subject line.
func NewRegistrationMessage(name, username, address, link, origin string) Message {
	return Message{
		To:      address,
		Subject: fmt.Sprintf("Setup your account on %s", origin),
		Body:    fmt.Sprintf(registrationBody, name, origin, username, address, link),
	}
}
