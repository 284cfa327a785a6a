package model

import "time"

// SeatStatus is the per-showtime state of a seat.  Exactly one status
// holds for a (showtime, seat) pair at any instant.
type SeatStatus string

const (
    StatusFree   SeatStatus = "FREE"
    StatusHeld   SeatStatus = "HELD"
    StatusBooked SeatStatus = "BOOKED"
)

// ShowSeat links a seat to a showtime and tracks its status.  Version
// increases by one on every committed transition and orders the live
// events published for that seat.
type ShowSeat struct {
    ShowtimeID uint64     // show_seats.showtime_id
    SeatID     uint64     // show_seats.seat_id
    Status     SeatStatus // show_seats.status
    Version    uint64     // show_seats.version
    UpdatedAt  time.Time  // show_seats.updated_at
}

// BookedSeat is an entry of the booked-seat list of a showtime.
type BookedSeat struct {
    SeatID uint64 `json:"seat_id"`
}

// HeldSeat is an entry of the held-seat list of a showtime.  HeldBy is
// the operator holding the seat.
type HeldSeat struct {
    SeatID    uint64    `json:"seat_id"`
    ExpiresAt time.Time `json:"expires_at"`
    HeldBy    uint64    `json:"held_by,omitempty"`
}
