package model

import "time"

// SeatEventStatus is the status carried by a seat-update event.
type SeatEventStatus string

const (
    SeatEventHeld     SeatEventStatus = "held"
    SeatEventBooked   SeatEventStatus = "booked"
    SeatEventReleased SeatEventStatus = "released"
)

// SeatUpdateEvent is published on the showtime's live channel after a
// seat transition commits.  Version is the show seat version after the
// transition, so events for one seat can be ordered by it.  ActorID is
// the operator that caused the transition; it is zero for expiry.
type SeatUpdateEvent struct {
    ShowtimeID uint64          `json:"showtime_id"`
    SeatID     uint64          `json:"seat_id"`
    Status     SeatEventStatus `json:"status"`
    ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
    Version    uint64          `json:"version"`
    ActorID    uint64          `json:"actor_id,omitempty"`
}
