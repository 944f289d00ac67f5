// Package events delivers entity-changed notifications to external
// subscribers. Delivery is best effort: a failed publish is logged and
// counted, it never fails the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mcoot/partycasino/internal/dependencies/clock"
	"github.com/mcoot/partycasino/internal/metrics"
	"github.com/mcoot/partycasino/internal/model"
)

// Publisher delivers an event to one sink
type Publisher interface {
	Publish(ctx context.Context, event model.Event) error
}

// Encoder turns an event into the bytes a sink puts on the wire
type Encoder func(event model.Event) ([]byte, error)

// envelope is the fallback wire shape when no boundary encoder is supplied
type envelope struct {
	Type      model.EventType `json:"type"`
	Timestamp string          `json:"timestamp"`
	EntityID  string          `json:"entity_id"`
	Payload   any             `json:"payload"`
}

// JSONEncoder encodes the event as-is
func JSONEncoder(event model.Event) ([]byte, error) {
	return json.Marshal(envelope{
		Type:      event.Type,
		Timestamp: event.Timestamp.Format("2006-01-02T15:04:05.000000Z07:00"),
		EntityID:  event.EntityID,
		Payload:   event.Payload,
	})
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, model.Event) error { return nil }

// Fanout publishes to every sink and joins their errors
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event model.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emitter stamps events and publishes them without surfacing failures
type Emitter struct {
	publisher Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

// NewEmitter creates an Emitter. A nil publisher discards events.
func NewEmitter(publisher Publisher, clock clock.Clock, logger *slog.Logger) *Emitter {
	if publisher == nil {
		publisher = Nop{}
	}
	return &Emitter{
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Emit publishes an event for the entity, logging any failure
func (e *Emitter) Emit(ctx context.Context, typ model.EventType, entityID string, payload any) {
	event := model.Event{
		Type:      typ,
		Timestamp: e.clock.Now(),
		EntityID:  entityID,
		Payload:   payload,
	}

	// Delivery must not inherit a cancelled request context
	if err := e.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		metrics.EventsPublished.WithLabelValues(string(typ), "error").Inc()
		e.logger.Warn("failed to publish event",
			slog.String("event_type", string(typ)),
			slog.String("entity_id", entityID),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.EventsPublished.WithLabelValues(string(typ), "ok").Inc()
}

// PlayerUpdated emits a player.updated snapshot
func (e *Emitter) PlayerUpdated(ctx context.Context, player *model.Player) {
	e.Emit(ctx, model.EventPlayerUpdated, string(player.ID), player.Clone())
}

// GameUpdated emits a game.updated snapshot
func (e *Emitter) GameUpdated(ctx context.Context, game *model.Game) {
	e.Emit(ctx, model.EventGameUpdated, string(game.ID), game.Clone())
}

// TransactionCreated emits a transaction.created event
func (e *Emitter) TransactionCreated(ctx context.Context, tx *model.Transaction) {
	c := *tx
	e.Emit(ctx, model.EventTransactionCreated, string(tx.ID), &c)
}
