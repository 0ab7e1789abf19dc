package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"sigil/internal/platform/config"
)

func TestNewPicksImplementation(t *testing.T) {
	assert.IsType(t, &LogMailer{}, New(config.SMTPConfig{}, nil))
	assert.IsType(t, &SMTPMailer{}, New(config.SMTPConfig{Enabled: true, Host: "smtp.example.com", Sender: "id@example.com"}, nil))
}

type captureClient struct {
	sent []*gomail.Msg
	err  error
	ctx  context.Context
}

func (c *captureClient) DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error {
	c.ctx = ctx
	c.sent = append(c.sent, messages...)
	return c.err
}

func newTestMailer(client *captureClient) *SMTPMailer {
	m := NewSMTPMailer(config.SMTPConfig{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     2525,
		Username: "sigil",
		Password: "pw",
		Sender:   "id@example.com",
	})
	m.newClient = func() (deliverer, error) { return client, nil }
	return m
}

func TestSMTPMailerSend(t *testing.T) {
	client := &captureClient{}
	m := newTestMailer(client)

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "req")
	err := m.Send(ctx, Message{To: "ada@example.com", Subject: "Register", Body: "line one\nline two"})
	require.NoError(t, err)

	require.Len(t, client.sent, 1)
	assert.Equal(t, "req", client.ctx.Value(ctxKey{}), "delivery runs under the caller's context")

	msg := client.sent[0]
	to, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com"}, to)
	assert.Equal(t, []string{"Register"}, msg.GetGenHeader(gomail.HeaderSubject))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "id@example.com")
	assert.Contains(t, raw.String(), "line one")
	assert.Contains(t, raw.String(), "text/plain")
}

func TestSMTPMailerRejectsHeaderInjection(t *testing.T) {
	client := &captureClient{}
	m := newTestMailer(client)

	err := m.Send(context.Background(), Message{To: "ada@example.com\r\nBcc: eve@example.com", Subject: "x"})
	assert.Error(t, err)
	err = m.Send(context.Background(), Message{To: "ada@example.com", Subject: "x\r\nBcc: eve@example.com"})
	assert.Error(t, err)
	assert.Empty(t, client.sent)
}

func TestSMTPMailerWrapsFailure(t *testing.T) {
	boom := errors.New("relay down")
	m := newTestMailer(&captureClient{err: boom})

	err := m.Send(context.Background(), Message{To: "ada@example.com", Subject: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestSMTPMailerHonoursCancelledContext(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "127.0.0.1", Port: 1, Sender: "id@example.com", TLSPolicy: "none"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, Message{To: "ada@example.com", Subject: "x"})
	assert.Error(t, err)
}

func TestTLSPolicy(t *testing.T) {
	assert.Equal(t, gomail.TLSMandatory, tlsPolicy("mandatory"))
	assert.Equal(t, gomail.NoTLS, tlsPolicy("none"))
	assert.Equal(t, gomail.TLSOpportunistic, tlsPolicy(""))
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, m.Send(context.Background(), Message{To: "ada@example.com", Subject: "Register", Body: "https://id.example.com/auth/register/passkey?t=abc"}))
	assert.Contains(t, buf.String(), "ada@example.com")
	assert.Contains(t, buf.String(), "t=abc")
}

func TestNewRegistrationMessage(t *testing.T) {
	msg := NewRegistrationMessage("Ada", "ada", "ada@example.com", "https://id.example.com/auth/register/passkey?t=tok", "id.example.com")
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Setup your account on id.example.com", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Ada,")
	assert.Contains(t, msg.Body, "https://id.example.com/auth/register/passkey?t=tok")
}
