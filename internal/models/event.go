package models

import (
	"time"

	"github.com/google/uuid"
)

type EventAction string

const (
	ActionCheckIn  EventAction = "check_in"
	ActionCheckOut EventAction = "check_out"
)

// Event is one append-only lifecycle transition. Events are never
// updated or deleted; for any guest they strictly alternate
// check_in, check_out, check_in, ... starting with check_in.
type Event struct {
	ID      uuid.UUID   `json:"id" db:"id"`
	GuestID int64       `json:"guest_id" db:"guest_id"`
	Action  EventAction `json:"action" db:"action"`
	Count   int         `json:"count" db:"count"`
	Time    time.Time   `json:"time" db:"time"`
}

// OccupancyUpdate is the message published to NATS after a lifecycle
// transition commits, consumed by the API for WebSocket broadcast.
type OccupancyUpdate struct {
	EventID   uuid.UUID   `json:"event_id"`
	GuestID   int64       `json:"guest_id"`
	GuestName string      `json:"guest_name"`
	Action    EventAction `json:"action"`
	Time      time.Time   `json:"time"`
}
