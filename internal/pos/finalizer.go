package pos

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/seating"
)

// FinalizeResult is the outcome of a successful Finalize.
type FinalizeResult struct {
	Booking *model.Booking
	Quote   seating.Quote
	// Checkout is set for prepaid bookings whose payment was started.
	Checkout *model.PaymentCheckout
	// PayOnPickupFallback is set when the booking was created but the
	// prepaid payment could not be started; the customer pays on pickup.
	PayOnPickupFallback bool
}

// Finalize converts the Selection and food/drink lines into a booking.
// Only one finalize runs per session and seat clicks are rejected while
// it does.  The Selection is cleared only when the store accepts the
// booking; on a conflict the seat state is refreshed and the returned
// error is marked ErrStaleState.
//
// For PREPAID the gateway is called after the booking exists.  If that
// fails the result is still returned, with PayOnPickupFallback set,
// together with an error marked ErrPaymentInitiation.
func (s *Session) Finalize(ctx context.Context, method model.PaymentMethod) (*FinalizeResult, error) {
	s.mu.Lock()
	if s.showtime == nil {
		s.mu.Unlock()
		return nil, ErrNoShowtime
	}
	if s.finalizing {
		s.mu.Unlock()
		return nil, ErrFinalizeInFlight
	}
	if s.selection.Len() == 0 {
		s.mu.Unlock()
		return nil, ErrEmptySelection
	}
	if len(s.pending) > 0 {
		s.mu.Unlock()
		return nil, ErrSeatPending
	}
	if method == model.Prepaid && s.gateway == nil {
		s.mu.Unlock()
		return nil, ErrNoGateway
	}
	quote, err := s.quoteLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, errors.Wrap(err, "price booking")
	}
	showtimeID := s.showtime.ID
	req := model.BookingRequest{
		Type:          s.bookingType,
		ShowtimeID:    showtimeID,
		SeatIDs:       s.selection.IDs(),
		FoodDrinks:    append([]model.FoodDrinkLineItem(nil), s.foods...),
		PaymentMethod: method,
	}
	s.finalizing = true
	gen := s.gen
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)

	log := s.log.WithField("showtime_id", showtimeID).WithField("seats", len(req.SeatIDs))

	booking, err := s.store.CreateBooking(ctx, req)
	if err != nil {
		s.endFinalize(gen, false)
		if errors.Is(err, ErrSeatConflict) || errors.Is(err, ErrStaleState) {
			log.WithError(err).Warn("booking rejected, refreshing seat state")
			if rerr := s.Refresh(ctx); rerr != nil {
				log.WithError(rerr).Warn("refresh after rejected booking failed")
			}
			return nil, errors.Mark(errors.Wrap(err, "create booking"), ErrStaleState)
		}
		return nil, errors.Wrap(err, "create booking")
	}
	if booking.TotalPrice != quote.Total {
		log.WithField("booking_id", booking.ID).
			Warnf("booking total %d differs from local quote %d", booking.TotalPrice, quote.Total)
	}
	s.endFinalize(gen, true)
	log.WithField("booking_id", booking.ID).WithField("total", booking.TotalPrice).Info("booking created")

	res := &FinalizeResult{Booking: booking, Quote: quote}
	if method != model.Prepaid {
		return res, nil
	}
	co, err := s.gateway.CheckoutPrepaid(ctx, booking.TotalPrice, booking.ID)
	if err != nil {
		res.PayOnPickupFallback = true
		log.WithError(err).WithField("booking_id", booking.ID).Error("payment initiation failed, falling back to pay on pickup")
		return res, errors.Mark(errors.Wrapf(err, "checkout booking %d", booking.ID), ErrPaymentInitiation)
	}
	res.Checkout = co
	return res, nil
}

// endFinalize settles the session the booking started from.  When the
// operator switched showtimes meanwhile, gen no longer matches and the
// new showtime's Selection is left alone.
func (s *Session) endFinalize(gen uint64, booked bool) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.finalizing = false
	if booked {
		s.selection.Clear()
		s.foods = nil
	}
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)
}
