package storage

import "fmt"

// Schema returns the DDL for the guest registry and event log.
// Timestamps are stored as timestamptz; window math happens in the
// configured reporting zone at query time.
func Schema(dimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS guests (
    id            BIGSERIAL PRIMARY KEY,
    name          TEXT NOT NULL,
    phone         TEXT NOT NULL DEFAULT '',
    encoding      vector(%d) NOT NULL,
    status        TEXT NOT NULL CHECK (status IN ('present', 'departed')),
    checkin_time  TIMESTAMPTZ NOT NULL,
    checkout_time TIMESTAMPTZ,
    photo_key     TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS events (
    id       UUID PRIMARY KEY,
    guest_id BIGINT NOT NULL REFERENCES guests(id),
    action   TEXT NOT NULL CHECK (action IN ('check_in', 'check_out')),
    count    INTEGER NOT NULL DEFAULT 1,
    time     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_guests_status ON guests(status);
CREATE INDEX IF NOT EXISTS idx_events_guest ON events(guest_id, time);
CREATE INDEX IF NOT EXISTS idx_events_time ON events(time);
`, dimensions)
}
