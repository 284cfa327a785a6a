package model

import "time"

// Showtime is a scheduled screening of a movie in a room.
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – room where the screening takes place.
//  MovieTitle – title shown to operators.
//  StartsAt   – start of the screening (UTC).
//  BasePrice  – seat price before the seat type surcharge.
type Showtime struct {
    ID         uint64    `json:"id"`
    RoomID     uint64    `json:"room_id"`
    MovieTitle string    `json:"movie_title"`
    StartsAt   time.Time `json:"starts_at"`
    BasePrice  int64     `json:"base_price"`
}
