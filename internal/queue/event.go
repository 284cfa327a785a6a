// Package queue carries booking events over RabbitMQ.
package queue

// BookingQueue is the durable queue booking events are sent to.
const BookingQueue = "booking.confirmed"

// BookingConfirmedEvent is published after a booking commits.  It holds
// enough for downstream consumers to audit or notify without querying
// the primary database.
type BookingConfirmedEvent struct {
    BookingID     uint64   `json:"booking_id"`
    OperatorID    uint64   `json:"operator_id"`
    ShowtimeID    uint64   `json:"showtime_id"`
    MovieTitle    string   `json:"movie_title"`
    StartsAt      string   `json:"starts_at"`
    BookingType   string   `json:"booking_type"`
    PaymentMethod string   `json:"payment_method"`
    SeatLabels    []string `json:"seats"`
    FoodDrinks    int      `json:"food_drink_items"`
    TotalPrice    int64    `json:"total_price"`
    ConfirmedAt   string   `json:"confirmed_at"`
}
