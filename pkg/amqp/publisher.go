// Package amqp publishes outbox messages to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox"
)

// Publisher routes each message to the exchange with the topic as routing key and waits
// for the broker confirm.
type Publisher struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ outbox.Publisher = (*Publisher)(nil)

func NewPublisher(cfg config.AMQPConfig) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp url required")
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		return nil, errors.New("amqp exchange required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return &Publisher{exchange: cfg.Exchange, conn: conn, ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, topic string, msg outbox.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		return errors.New("amqp channel closed")
	}
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, topic, true, false, toPublishing(msg))
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("broker nacked message for %s", topic)
	}
	return nil
}

func (p *Publisher) Ping(context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

func toPublishing(msg outbox.Message) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range msg.Attributes {
		headers[k] = v
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    msg.Attributes["event_id"],
		Type:         msg.Attributes["event_type"],
		Headers:      headers,
		Body:         msg.Data,
	}
	if msg.Key != "" {
		pub.CorrelationId = msg.Key
	}
	return pub
}
