package dto

import "github.com/google/uuid"

type EventResponse struct {
	ID      uuid.UUID `json:"id"`
	GuestID int64     `json:"guest_id"`
	Action  string    `json:"action"`
	Count   int       `json:"count"`
	Time    string    `json:"time"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

// OccupancyUpdateResponse is the payload delivered over the live feed.
type OccupancyUpdateResponse struct {
	EventID   uuid.UUID `json:"event_id"`
	GuestID   int64     `json:"guest_id"`
	GuestName string    `json:"guest_name"`
	Action    string    `json:"action"`
	Time      string    `json:"time"`
}

// WSEvent is a WebSocket message for real-time occupancy delivery.
type WSEvent struct {
	Type string                  `json:"type"` // guest_checked_in, guest_checked_out
	Data OccupancyUpdateResponse `json:"data"`
}
