package pos

import "github.com/cockroachdb/errors"

var (
	// ErrSeatConflict means the seat is held or booked by someone else.
	// It is retryable and never changes the Selection.
	ErrSeatConflict = errors.New("seat unavailable")
	// ErrStaleState means a booking was rejected because a selected seat
	// is no longer held by this operator.  Seat state has been re-fetched
	// and the operator must re-select.
	ErrStaleState = errors.New("seat state changed, re-select seats")
	// ErrCatalogUnavailable disables seat interaction for the showtime.
	ErrCatalogUnavailable = errors.New("seat map unavailable")
	// ErrPaymentInitiation means the booking exists but the prepaid
	// payment could not be started.
	ErrPaymentInitiation = errors.New("payment initiation failed")

	ErrNoShowtime       = errors.New("no showtime selected")
	ErrEmptySelection   = errors.New("no seats selected")
	ErrFinalizeInFlight = errors.New("booking already in progress")
	ErrSeatPending      = errors.New("seat request already in progress")
	ErrUnknownSeat      = errors.New("unknown seat")
	ErrNoGateway        = errors.New("no payment gateway configured")
)
