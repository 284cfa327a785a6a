package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/payment"
	"github.com/iliyamo/cinema-pos/internal/queue"
	"github.com/iliyamo/cinema-pos/internal/repository"
	"github.com/iliyamo/cinema-pos/internal/seating"
)

var (
	// ErrSplitCouple is returned when a booking names one half of a
	// couple pair without the other.
	ErrSplitCouple = errors.New("couple seats must be booked together")
	// ErrNotPrepaid is returned when checking out a pay-on-pickup booking.
	ErrNotPrepaid = errors.New("booking is not prepaid")
	// ErrNoPaymentGateway is returned when no gateway is configured.
	ErrNoPaymentGateway = errors.New("payment gateway not configured")
)

// BookingService converts held seats into bookings.
type BookingService struct {
	db        *sql.DB
	showtimes *repository.ShowtimeRepo
	rooms     *repository.RoomRepo
	showSeats *repository.ShowSeatRepo
	holds     *repository.SeatHoldRepo
	foods     *repository.FoodDrinkRepo
	bookings  *repository.BookingRepo
	pub       SeatPublisher
	events    BookingEvents
	gateway   PaymentInitiator
	log       observability.Logger
}

type BookingDeps struct {
	DB         *sql.DB
	Showtimes  *repository.ShowtimeRepo
	Rooms      *repository.RoomRepo
	ShowSeats  *repository.ShowSeatRepo
	Holds      *repository.SeatHoldRepo
	FoodDrinks *repository.FoodDrinkRepo
	Bookings   *repository.BookingRepo
	Publisher  SeatPublisher
	Events     BookingEvents
	Gateway    PaymentInitiator
	Log        observability.Logger
}

func NewBookingService(d BookingDeps) *BookingService {
	if d.Publisher == nil {
		d.Publisher = nopPublisher{}
	}
	if d.Log == nil {
		d.Log = observability.Discard()
	}
	return &BookingService{
		db:        d.DB,
		showtimes: d.Showtimes,
		rooms:     d.Rooms,
		showSeats: d.ShowSeats,
		holds:     d.Holds,
		foods:     d.FoodDrinks,
		bookings:  d.Bookings,
		pub:       d.Publisher,
		events:    d.Events,
		gateway:   d.Gateway,
		log:       d.Log,
	}
}

// CreateBooking books every seat of req for the operator.  All seats
// must carry an unexpired hold of the operator; otherwise nothing is
// written and the error is marked ErrStaleHold.  The total is computed
// here from the room's seat types and the menu, never taken from the
// client.
func (s *BookingService) CreateBooking(ctx context.Context, operatorID uint64, req model.BookingRequest) (*model.Booking, error) {
	seatIDs := uniqueIDs(req.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, errors.New("no seats requested")
	}
	items, err := mergeItems(req.FoodDrinks)
	if err != nil {
		return nil, err
	}

	st, err := s.showtimes.GetByID(ctx, req.ShowtimeID)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.GetByID(ctx, st.RoomID)
	if err != nil {
		return nil, err
	}
	cat, err := seating.Resolve(room)
	if err != nil {
		return nil, err
	}
	units, err := completeUnits(cat, seatIDs)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		OperatorID:    operatorID,
		ShowtimeID:    st.ID,
		Type:          req.Type,
		PaymentMethod: req.PaymentMethod,
		Status:        model.BookingUnpaid,
		SeatIDs:       seatIDs,
		FoodDrinks:    items,
	}
	if req.PaymentMethod == model.Prepaid {
		booking.Status = model.BookingPendingPayment
	}

	if err := s.showSeats.Ensure(ctx, st.ID); err != nil {
		return nil, err
	}
	var events []model.SeatUpdateEvent
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		expired, err := s.holds.ExpireTx(ctx, tx, st.ID, 0)
		if err != nil {
			return err
		}
		freed, err := s.showSeats.TransitionTx(ctx, tx, st.ID, expired, model.StatusHeld, model.StatusFree)
		if err != nil {
			return err
		}

		holds, err := s.holds.ActiveForSeatsTx(ctx, tx, operatorID, st.ID, seatIDs)
		if err != nil {
			return err
		}
		if len(holds) != len(seatIDs) {
			return errors.Wrapf(repository.ErrStaleHold, "%d of %d seats held", len(holds), len(seatIDs))
		}

		fds, err := s.foods.ByIDsTx(ctx, tx, foodIDs(items))
		if err != nil {
			return err
		}
		menu := seating.Menu(fds)
		quote, err := seating.Price(units, st.BasePrice, items, menu)
		if err != nil {
			return err
		}
		booking.TotalPrice = quote.Total

		if err := s.bookings.CreateTx(ctx, tx, booking); err != nil {
			return err
		}
		if err := s.bookings.CreateSeatsTx(ctx, tx, booking.ID, st.ID, seatPrices(units, st.BasePrice)); err != nil {
			return err
		}
		if err := s.bookings.CreateFoodDrinksTx(ctx, tx, booking.ID, items, menu); err != nil {
			return err
		}

		sold, err := s.showSeats.TransitionTx(ctx, tx, st.ID, seatIDs, model.StatusHeld, model.StatusBooked)
		if err != nil {
			return err
		}
		if len(sold) != len(seatIDs) {
			return errors.Wrapf(repository.ErrStaleHold, "%d of %d seats still held", len(sold), len(seatIDs))
		}
		ids := make([]uint64, len(holds))
		for i, h := range holds {
			ids[i] = h.ID
		}
		if err := s.holds.DeleteByIDsTx(ctx, tx, ids); err != nil {
			return err
		}

		events = append(seatEvents(st.ID, freed, model.SeatEventReleased, 0, nil),
			seatEvents(st.ID, sold, model.SeatEventBooked, operatorID, nil)...)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleHold) {
			observability.BookingsRejected.Inc()
		}
		return nil, err
	}

	observability.BookingsCreated.WithLabelValues(string(booking.PaymentMethod)).Inc()
	publishCommitted(ctx, s.pub, events)
	s.announce(context.WithoutCancel(ctx), booking, st, units)
	return booking, nil
}

func (s *BookingService) announce(ctx context.Context, b *model.Booking, st *model.Showtime, units []seating.Unit) {
	if s.events == nil {
		return
	}
	labels := make([]string, len(units))
	for i, u := range units {
		labels[i] = u.Label
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:     b.ID,
		OperatorID:    b.OperatorID,
		ShowtimeID:    b.ShowtimeID,
		MovieTitle:    st.MovieTitle,
		StartsAt:      st.StartsAt.UTC().Format(time.RFC3339),
		BookingType:   string(b.Type),
		PaymentMethod: string(b.PaymentMethod),
		SeatLabels:    labels,
		FoodDrinks:    len(b.FoodDrinks),
		TotalPrice:    b.TotalPrice,
		ConfirmedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
	// the booking is committed; a lost audit message is only logged
	_ = s.events.PublishBookingConfirmed(ctx, ev)
}

// Get returns one of the operator's bookings.  Bookings of other
// operators read as not found.
func (s *BookingService) Get(ctx context.Context, operatorID, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.OperatorID != operatorID {
		return nil, errors.Wrapf(repository.ErrNotFound, "booking %d", bookingID)
	}
	return b, nil
}

// Checkout starts the prepaid payment of a booking and records the
// gateway payment id.  A booking is checked out at most once.
func (s *BookingService) Checkout(ctx context.Context, operatorID, bookingID uint64) (*model.PaymentCheckout, error) {
	if s.gateway == nil {
		return nil, ErrNoPaymentGateway
	}
	b, err := s.Get(ctx, operatorID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentMethod != model.Prepaid {
		return nil, errors.Wrapf(ErrNotPrepaid, "booking %d", bookingID)
	}
	if b.PaymentRef != nil {
		return nil, errors.Wrapf(repository.ErrConflict, "booking %d already has payment %s", bookingID, *b.PaymentRef)
	}

	resp, err := s.gateway.InitPayment(ctx, b.TotalPrice, strconv.FormatUint(b.ID, 10), fmt.Sprintf("Booking #%d", b.ID))
	if err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Warn("payment initiation failed")
		return nil, errors.Mark(err, payment.ErrGateway)
	}
	if err := s.bookings.SetPaymentRef(ctx, b.ID, resp.PaymentID); err != nil {
		return nil, err
	}
	return &model.PaymentCheckout{BookingID: b.ID, PaymentID: resp.PaymentID, RedirectURL: resp.PaymentURL}, nil
}

// completeUnits groups seatIDs into units and rejects a couple pair
// with only one half requested.
func completeUnits(cat *seating.Catalog, seatIDs []uint64) ([]seating.Unit, error) {
	requested := make(map[uint64]bool, len(seatIDs))
	for _, id := range seatIDs {
		if _, ok := cat.SeatByID(id); !ok {
			return nil, errors.Wrapf(repository.ErrUnknownSeat, "seat %d", id)
		}
		requested[id] = true
	}
	units := cat.Units(seatIDs)
	for _, u := range units {
		for _, id := range u.SeatIDs() {
			if !requested[id] {
				return nil, errors.Wrapf(ErrSplitCouple, "%s", u.Label)
			}
		}
	}
	return units, nil
}

// seatPrices is the per-seat price each unit contributes.
func seatPrices(units []seating.Unit, basePrice int64) []repository.BookingSeat {
	var out []repository.BookingSeat
	for _, u := range units {
		for _, seat := range u.Seats {
			out = append(out, repository.BookingSeat{SeatID: seat.ID, Price: basePrice + u.Seats[0].ExtraPrice})
		}
	}
	return out
}

// mergeItems sums repeated items and drops zero quantities.
func mergeItems(items []model.FoodDrinkLineItem) ([]model.FoodDrinkLineItem, error) {
	idx := make(map[uint64]int, len(items))
	var out []model.FoodDrinkLineItem
	for _, it := range items {
		if it.Quantity < 0 {
			return nil, errors.Wrapf(seating.ErrInvalidQuantity, "food/drink %d: quantity %d", it.FoodDrinkID, it.Quantity)
		}
		if it.Quantity == 0 {
			continue
		}
		if i, ok := idx[it.FoodDrinkID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.FoodDrinkID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

func foodIDs(items []model.FoodDrinkLineItem) []uint64 {
	ids := make([]uint64, len(items))
	for i, it := range items {
		ids[i] = it.FoodDrinkID
	}
	return ids
}
