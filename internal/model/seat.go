package model

// SeatType classifies a seat.  COUPLE seats are paired with a
// horizontally adjacent COUPLE seat and sold as a single unit.
type SeatType string

const (
    SeatNormal SeatType = "NORMAL"
    SeatVIP    SeatType = "VIP"
    SeatCouple SeatType = "COUPLE"
)

// Seat describes a physical seat in a room.  Seats are catalog data:
// this system never creates or destroys them.
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – room to which this seat belongs.
//  SeatNumber – human label such as "A5".
//  Row        – row label ("A", "B", ... "AA").
//  Col        – 1-based column within the row.
//  SeatType   – NORMAL, VIP or COUPLE.
//  ExtraPrice – surcharge of the seat type over the showtime base price.
//  CoupleWith – id of the partner seat, set by the catalog resolver.
type Seat struct {
    ID         uint64   `json:"id"`
    RoomID     uint64   `json:"room_id"`
    SeatNumber string   `json:"seat_number"`
    Row        string   `json:"row"`
    Col        int      `json:"col"`
    SeatType   SeatType `json:"seat_type"`
    ExtraPrice int64    `json:"extra_price"`
    CoupleWith uint64   `json:"couple_with,omitempty"`
}
