package model

import "time"

// EventType identifies what changed
type EventType string

const (
	EventPlayerUpdated      EventType = "player.updated"
	EventGameUpdated        EventType = "game.updated"
	EventTransactionCreated EventType = "transaction.created"
)

// Event notifies external subscribers that an entity changed.
// Payload is a snapshot of the entity after the change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	EntityID  string
	Payload   any
}
