package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partycasino/internal/model"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := NewWithWriter(w, nil)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := p.Publish(context.Background(), model.Event{
		Type:      model.EventTransactionCreated,
		Timestamp: ts,
		EntityID:  "tx-1",
		Payload:   map[string]string{"id": "tx-1"},
	})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "tx-1", string(msg.Key))
	assert.Equal(t, ts, msg.Time)
	assert.Contains(t, string(msg.Value), `"type":"transaction.created"`)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "transaction.created", string(msg.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishSurfacesWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := NewWithWriter(w, nil)

	err := p.Publish(context.Background(), model.Event{Type: model.EventGameUpdated, EntityID: "g1"})
	assert.EqualError(t, err, "broker unavailable")
}

func TestNewPublisherDefaultsTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "", nil)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
}
