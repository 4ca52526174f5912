package models

import "time"

type GuestStatus string

const (
	StatusPresent  GuestStatus = "present"
	StatusDeparted GuestStatus = "departed"
)

// Encoding is a fixed-length face encoding vector produced by an
// external feature extractor. A guest always carries exactly one
// encoding, the most recent one.
type Encoding []float32

// Guest is one enrolled person. The ID is assigned by the store at
// first enrollment and never reused.
type Guest struct {
	ID           int64       `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Phone        string      `json:"phone" db:"phone"`
	Encoding     Encoding    `json:"-" db:"encoding"`
	Status       GuestStatus `json:"status" db:"status"`
	CheckinTime  time.Time   `json:"checkin_time" db:"checkin_time"`
	CheckoutTime *time.Time  `json:"checkout_time,omitempty" db:"checkout_time"`
	PhotoKey     string      `json:"photo_key,omitempty" db:"photo_key"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// Candidate is the (id, encoding) pair the matcher compares a probe
// against. Candidates are always produced in ascending ID order.
type Candidate struct {
	GuestID  int64
	Encoding Encoding
}
