package outbox

import (
	"context"
	"time"

	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
)

// Message is the broker-neutral form of one outbox row.
type Message struct {
	// Key groups messages of one aggregate so brokers that partition keep their order.
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Publisher delivers messages to a named topic. Kafka, Pub/Sub and AMQP adapters
// implement it.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Ping(ctx context.Context) error
	Close() error
}

// MessageFromRow copies the stored envelope verbatim and lifts the routing metadata into
// attributes.
func MessageFromRow(row models.OutboxEvent, eventID string) Message {
	return Message{
		Key:  row.AggregateID.String(),
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}
