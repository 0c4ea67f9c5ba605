package mail

import (
	"context"
	"testing"

	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewMailer(t *testing.T) {
	logger := zap.NewNop()

	assert.IsType(t, &LogMailer{}, NewMailer(config.MailgunConfig{}, logger))
	assert.IsType(t, &MailgunMailer{}, NewMailer(config.MailgunConfig{
		Domain: "mg.example.com",
		APIKey: "key-test",
		Sender: "CRM <crm@example.com>",
	}, logger))
}

func TestLogMailer_Send(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mailer := NewLogMailer(zap.New(core))

	err := mailer.Send(context.Background(), Message{To: "bob@example.com", Subject: "Task due soon"})

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "bob@example.com", fields["to"])
	assert.Equal(t, "Task due soon", fields["subject"])
}

func TestMailers_RejectMissingRecipient(t *testing.T) {
	ctx := context.Background()

	assert.ErrorIs(t, NewLogMailer(zap.NewNop()).Send(ctx, Message{Subject: "x"}), ErrNoRecipient)
	mg := NewMailgunMailer(config.MailgunConfig{Domain: "mg.example.com", APIKey: "key-test"})
	assert.ErrorIs(t, mg.Send(ctx, Message{To: "  "}), ErrNoRecipient)
}
