package domain

import "time"

type EventType string

const (
	EventInventoryCreated EventType = "inventory.created"
	EventInventoryDeleted EventType = "inventory.deleted"
	EventOrderCreated     EventType = "order.created"
	EventOrderDeleted     EventType = "order.deleted"
)

// Event is emitted after a mutation has committed.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	EntityID   int64     `json:"entityId"`
	OccurredAt time.Time `json:"occurredAt"`
}
