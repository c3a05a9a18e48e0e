// Package kafka publishes outbox messages with segmentio/kafka-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox"
)

const dialTimeout = 5 * time.Second

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Publisher struct {
	writer  messageWriter
	brokers []string
}

var _ outbox.Publisher = (*Publisher)(nil)

// NewPublisher builds a synchronous writer. Messages are hash-partitioned by key so one
// aggregate's events stay ordered.
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers required")
	}
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: writer, brokers: brokers}, nil
}

func (p *Publisher) Publish(ctx context.Context, topic string, msg outbox.Message) error {
	if err := p.writer.WriteMessages(ctx, toKafkaMessage(topic, msg)); err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (p *Publisher) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range p.brokers {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, err := kafkago.DialContext(dialCtx, "tcp", broker)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func toKafkaMessage(topic string, msg outbox.Message) kafkago.Message {
	keys := make([]string, 0, len(msg.Attributes))
	for k := range msg.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(msg.Attributes[k])})
	}
	return kafkago.Message{
		Topic:   topic,
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
	}
}
