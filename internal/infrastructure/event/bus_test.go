package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	var reminders, all []string
	bus.Subscribe(func(_ context.Context, e shared.DomainEvent) error {
		reminders = append(reminders, e.Type)
		return nil
	}, "task.reminder")
	bus.Subscribe(func(_ context.Context, e shared.DomainEvent) error {
		all = append(all, e.Type)
		return nil
	})

	taskID := uuid.New()
	require.NoError(t, bus.Publish(ctx,
		shared.NewDomainEvent("task.reminder", "Task", taskID, nil),
		shared.NewDomainEvent("lead.assigned", "Lead", uuid.New(), nil),
	))

	assert.Equal(t, []string{"task.reminder"}, reminders)
	assert.Equal(t, []string{"task.reminder", "lead.assigned"}, all)
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	delivered := 0
	bus.Subscribe(func(context.Context, shared.DomainEvent) error {
		return errors.New("boom")
	})
	bus.Subscribe(func(context.Context, shared.DomainEvent) error {
		panic("handler bug")
	})
	bus.Subscribe(func(context.Context, shared.DomainEvent) error {
		delivered++
		return nil
	})

	err := bus.Publish(context.Background(), shared.NewDomainEvent("task.reminder", "Task", uuid.New(), nil))

	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
}

func TestInMemoryEventBus_NoSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	assert.NoError(t, bus.Publish(context.Background(), shared.NewDomainEvent("x", "X", uuid.New(), nil)))
}

func TestNewMessage(t *testing.T) {
	event := shared.NewDomainEvent("task.reminder", "Task", uuid.New(), map[string]any{"title": "Call Acme"})

	msg, err := NewMessage(event)

	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, event.ID.String(), msg.MessageId)
	assert.Equal(t, "task.reminder", msg.Type)

	var decoded shared.DomainEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, event.AggregateID, decoded.AggregateID)
	assert.Equal(t, "Call Acme", decoded.Payload["title"])
}
