package domain

import "time"

type EventType string

const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventDeactivated EventType = "deactivated"
	EventReactivated EventType = "reactivated"
	EventDeleted     EventType = "deleted"
)

// Event is emitted after every successful lifecycle operation.
type Event struct {
	Type       EventType `json:"type"`
	Kind       Kind      `json:"kind"`
	EntityID   string    `json:"entityId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	OccurredAt time.Time `json:"occurredAt"`
}
