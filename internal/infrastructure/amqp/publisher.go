// Package amqp publishes notification payloads to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/bed-alerts/internal/logger"
)

// channel is the subset of *amqp091.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends each payload as a persistent JSON message on a short-lived
// channel, routed with a fixed key.
type Publisher struct {
	exchange    string
	routingKey  string
	openChannel func() (channel, error)
	close       func() error
	now         func() time.Time
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange, routingKey string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp open channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		exchange:   exchange,
		routingKey: routingKey,
		openChannel: func() (channel, error) {
			ch, err := conn.Channel()
			if err != nil {
				return nil, err
			}
			if err := ch.Confirm(false); err != nil {
				ch.Close()
				return nil, err
			}
			return ch, nil
		},
		close: conn.Close,
		now:   time.Now,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	ch, err := p.openChannel()
	if err != nil {
		return fmt.Errorf("amqp open channel: %w", err)
	}
	defer ch.Close()

	msgID := uuid.NewString()
	err = ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msgID,
		Timestamp:    p.now(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("amqp publish to %s: %w", p.exchange, err)
	}
	logger.DebugKV(ctx, "published", "exchange", p.exchange, "key", p.routingKey, "message_id", msgID)
	return nil
}

// Close closes the underlying connection.
func (p *Publisher) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}
