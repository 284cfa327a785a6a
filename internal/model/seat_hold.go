package model

import "time"

// SeatHold represents a temporary, exclusive claim on a seat for one
// showtime.  Holds expire at ExpiresAt; expiry is enforced by the
// server, never by the terminal.
//
// Fields:
//  ID         – primary key identifier.
//  OperatorID – operator who holds the seat.
//  ShowtimeID – showtime for which the seat is held.
//  SeatID     – seat being held.
//  HoldToken  – opaque token identifying the hold.
//  ExpiresAt  – when the hold expires.
//  CreatedAt  – when the hold was created.
type SeatHold struct {
    ID         uint64    // seat_holds.id
    OperatorID uint64    // seat_holds.operator_id
    ShowtimeID uint64    // seat_holds.showtime_id
    SeatID     uint64    // seat_holds.seat_id
    HoldToken  string    // seat_holds.hold_token
    ExpiresAt  time.Time // seat_holds.expires_at
    CreatedAt  time.Time // seat_holds.created_at
}
