package mail

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned for messages without a recipient address
var ErrNoRecipient = errors.New("mail: message has no recipient")

// Message is a plain e-mail. HTML is optional.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	return nil
}

// Mailer sends e-mail
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns a Mailgun mailer when Mailgun is configured, otherwise
// a mailer that only logs
func NewMailer(cfg config.MailgunConfig, logger *zap.Logger) Mailer {
	if !cfg.Enabled() {
		logger.Info("Mailgun not configured, e-mail is logged only")
		return NewLogMailer(logger)
	}
	return NewMailgunMailer(cfg)
}

const sendTimeout = 10 * time.Second

// MailgunMailer sends e-mail through the Mailgun API
type MailgunMailer struct {
	client *mailgun.MailgunImpl
	sender string
}

// NewMailgunMailer creates a Mailgun mailer
func NewMailgunMailer(cfg config.MailgunConfig) *MailgunMailer {
	client := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		client.SetAPIBase(cfg.APIBase)
	}
	return &MailgunMailer{client: client, sender: cfg.Sender}
}

// Send delivers the message
func (m *MailgunMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	message := m.client.NewMessage(m.sender, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, _, err := m.client.Send(ctx, message)
	return err
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	m.logger.Info("E-mail not sent, mail delivery disabled",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

var (
	_ Mailer = (*MailgunMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
