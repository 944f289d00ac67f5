// Package kafka publishes entity-changed events to a Kafka topic
package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/mcoot/partycasino/internal/events"
	"github.com/mcoot/partycasino/internal/model"
)

// DefaultTopic receives every ledger event unless configured otherwise
const DefaultTopic = "partycasino.events"

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per event, keyed by entity id so updates to
// the same entity land on the same partition in order
type Publisher struct {
	writer messageWriter
	encode events.Encoder
}

// Ensure Publisher is an event sink
var _ events.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher writing to topic on brokers
func NewPublisher(brokers []string, topic string, encode events.Encoder) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return NewWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}, encode)
}

// NewWithWriter creates a publisher over an existing writer (for testing)
func NewWithWriter(writer messageWriter, encode events.Encoder) *Publisher {
	if encode == nil {
		encode = events.JSONEncoder
	}
	return &Publisher{writer: writer, encode: encode}
}

func (p *Publisher) Publish(ctx context.Context, event model.Event) error {
	data, err := p.encode(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EntityID),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

// Close flushes pending messages and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
