package amqp

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox"
)

func TestToPublishing(t *testing.T) {
	pub := toPublishing(outbox.Message{
		Key:  "order-1",
		Data: []byte(`{"version":1}`),
		Attributes: map[string]string{
			"event_id":   "evt-1",
			"event_type": "order_cancelled",
		},
	})

	if pub.DeliveryMode != amqp.Persistent {
		t.Fatalf("expected persistent delivery, got %d", pub.DeliveryMode)
	}
	if pub.MessageId != "evt-1" || pub.Type != "order_cancelled" {
		t.Fatalf("unexpected id/type %q %q", pub.MessageId, pub.Type)
	}
	if pub.CorrelationId != "order-1" {
		t.Fatalf("unexpected correlation id %q", pub.CorrelationId)
	}
	if pub.Headers["event_type"] != "order_cancelled" {
		t.Fatalf("attributes should become headers, got %v", pub.Headers)
	}
	if string(pub.Body) != `{"version":1}` {
		t.Fatalf("unexpected body %s", pub.Body)
	}
}

func TestNewPublisherValidatesConfig(t *testing.T) {
	if _, err := NewPublisher(config.AMQPConfig{Exchange: "x"}); err == nil {
		t.Fatal("expected missing url to fail")
	}
	if _, err := NewPublisher(config.AMQPConfig{URL: "amqp://localhost"}); err == nil {
		t.Fatal("expected missing exchange to fail")
	}
}

func TestClosedPublisher(t *testing.T) {
	p := &Publisher{exchange: "x"}
	if err := p.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on closed publisher to fail")
	}
	if err := p.Publish(context.Background(), "orders", outbox.Message{}); err == nil {
		t.Fatal("expected publish on closed publisher to fail")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
