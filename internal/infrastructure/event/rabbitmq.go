package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultExchange is used when no exchange is configured
const DefaultExchange = "crm.events"

// RabbitMQPublisher publishes events as persistent JSON messages to a
// durable topic exchange, routed by event type
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbitMQPublisher dials the broker and declares the exchange
func NewRabbitMQPublisher(cfg config.RabbitMQConfig, logger *zap.Logger) (*RabbitMQPublisher, error) {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &RabbitMQPublisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish sends each event with its type as routing key
func (p *RabbitMQPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, event := range events {
		msg, err := NewMessage(event)
		if err != nil {
			return err
		}
		if err := p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
			return fmt.Errorf("failed to publish %s: %w", event.Type, err)
		}
		p.logger.Debug("Published event",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ID.String()))
	}
	return nil
}

// Close closes the channel and the connection
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NewMessage encodes an event as an AMQP publishing
func NewMessage(event shared.DomainEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode event %s: %w", event.Type, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Type:         event.Type,
		Timestamp:    event.Timestamp,
		Body:         body,
	}, nil
}

var _ shared.EventPublisher = (*RabbitMQPublisher)(nil)
