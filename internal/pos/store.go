// Package pos is the operator-side seat reservation flow: it resolves a
// showtime's seat map, keeps the operator's Selection consistent with
// the backing store through holds and releases, reconciles live seat
// updates from other terminals and finalizes bookings.
package pos

import (
	"context"

	"github.com/iliyamo/cinema-pos/internal/model"
)

// Store is the authoritative seat-state backing store.  Implementations
// report a seat already held or booked by someone else with an error
// marked ErrSeatConflict, and a booking whose seats lost their holds
// with an error marked ErrStaleState.
type Store interface {
	Showtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error)
	Room(ctx context.Context, roomID uint64) (*model.Room, error)
	FoodDrinks(ctx context.Context) ([]model.FoodDrink, error)

	BookedSeats(ctx context.Context, showtimeID uint64) ([]model.BookedSeat, error)
	HeldSeats(ctx context.Context, showtimeID uint64) ([]model.HeldSeat, error)

	// HoldSeat moves an AVAILABLE seat to HELD for the caller.
	HoldSeat(ctx context.Context, showtimeID, seatID uint64) (model.HeldSeat, error)
	// ReleaseSeat moves the caller's HELD seat back to AVAILABLE.  It
	// succeeds when the hold is already gone.
	ReleaseSeat(ctx context.Context, showtimeID, seatID uint64) error

	CreateBooking(ctx context.Context, req model.BookingRequest) (*model.Booking, error)
}

// PaymentGateway starts a prepaid payment for a booking.
type PaymentGateway interface {
	CheckoutPrepaid(ctx context.Context, amount int64, bookingID uint64) (*model.PaymentCheckout, error)
}

// Channel is a live seat-update subscription scoped to one showtime.
// Events of one showtime are delivered in the order they were
// published; the returned channel is closed after Leave.
type Channel interface {
	Join(ctx context.Context, showtimeID uint64) (<-chan model.SeatUpdateEvent, error)
	Leave(showtimeID uint64) error
}
