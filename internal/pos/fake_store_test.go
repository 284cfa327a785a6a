package pos

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
)

const testShowtimeID = 7

// backend is an in-memory seat store shared by several operators.
type backend struct {
	mu       sync.Mutex
	room     *model.Room
	menu     []model.FoodDrink
	holds    map[uint64]uint64 // seat -> operator
	booked   map[uint64]bool
	releases map[uint64]int // release calls per seat
	bookings []model.BookingRequest

	failHold    map[uint64]error
	failRelease map[uint64]error
	failBooking error
	roomErr     error
	bookGate    chan struct{}
}

func newBackend() *backend {
	return &backend{
		room: &model.Room{
			ID: 1, Name: "Room 1", Rows: 2, Cols: 6,
			Seats: []model.Seat{
				{ID: 1, RoomID: 1, Row: "A", Col: 1, SeatType: model.SeatNormal},
				{ID: 2, RoomID: 1, Row: "A", Col: 2, SeatType: model.SeatVIP, ExtraPrice: 20000},
				{ID: 3, RoomID: 1, Row: "A", Col: 3, SeatType: model.SeatNormal},
				{ID: 5, RoomID: 1, Row: "A", Col: 5, SeatType: model.SeatCouple, ExtraPrice: 30000},
				{ID: 6, RoomID: 1, Row: "A", Col: 6, SeatType: model.SeatCouple, ExtraPrice: 30000},
				{ID: 11, RoomID: 1, Row: "B", Col: 1, SeatType: model.SeatNormal},
			},
		},
		menu:        []model.FoodDrink{{ID: 1, Name: "Popcorn", Price: 50000}},
		holds:       make(map[uint64]uint64),
		booked:      make(map[uint64]bool),
		releases:    make(map[uint64]int),
		failHold:    make(map[uint64]error),
		failRelease: make(map[uint64]error),
	}
}

func (b *backend) releaseCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.releases {
		n += c
	}
	return n
}

func (b *backend) holder(seatID uint64) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.holds[seatID]
}

// expire drops a hold as if its TTL elapsed.
func (b *backend) expire(seatID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.holds, seatID)
}

// book marks a seat booked by another terminal.
func (b *backend) book(seatID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.holds, seatID)
	b.booked[seatID] = true
}

// operatorStore is one operator's view of the backend.
type operatorStore struct {
	b  *backend
	id uint64
}

func (b *backend) as(operatorID uint64) *operatorStore { return &operatorStore{b: b, id: operatorID} }

func (s *operatorStore) Showtime(_ context.Context, id uint64) (*model.Showtime, error) {
	return &model.Showtime{ID: id, RoomID: 1, MovieTitle: "Heat", BasePrice: 100000}, nil
}

func (s *operatorStore) Room(_ context.Context, _ uint64) (*model.Room, error) {
	if s.b.roomErr != nil {
		return nil, s.b.roomErr
	}
	return s.b.room, nil
}

func (s *operatorStore) FoodDrinks(context.Context) ([]model.FoodDrink, error) {
	return s.b.menu, nil
}

func (s *operatorStore) BookedSeats(_ context.Context, _ uint64) ([]model.BookedSeat, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	var out []model.BookedSeat
	for id := range s.b.booked {
		out = append(out, model.BookedSeat{SeatID: id})
	}
	return out, nil
}

func (s *operatorStore) HeldSeats(_ context.Context, _ uint64) ([]model.HeldSeat, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	var out []model.HeldSeat
	for id, op := range s.b.holds {
		out = append(out, model.HeldSeat{SeatID: id, HeldBy: op, ExpiresAt: time.Now().Add(5 * time.Minute)})
	}
	return out, nil
}

func (s *operatorStore) HoldSeat(_ context.Context, _ uint64, seatID uint64) (model.HeldSeat, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.failHold[seatID]; err != nil {
		return model.HeldSeat{}, err
	}
	if s.b.booked[seatID] {
		return model.HeldSeat{}, errors.Mark(errors.Newf("seat %d booked", seatID), ErrSeatConflict)
	}
	if op, ok := s.b.holds[seatID]; ok && op != s.id {
		return model.HeldSeat{}, errors.Mark(errors.Newf("seat %d held", seatID), ErrSeatConflict)
	}
	s.b.holds[seatID] = s.id
	return model.HeldSeat{SeatID: seatID, HeldBy: s.id, ExpiresAt: time.Now().Add(5 * time.Minute)}, nil
}

func (s *operatorStore) ReleaseSeat(_ context.Context, _ uint64, seatID uint64) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.releases[seatID]++
	if err := s.b.failRelease[seatID]; err != nil {
		return err
	}
	if s.b.holds[seatID] == s.id {
		delete(s.b.holds, seatID)
	}
	return nil
}

func (s *operatorStore) CreateBooking(_ context.Context, req model.BookingRequest) (*model.Booking, error) {
	if gate := s.b.bookGate; gate != nil {
		<-gate
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.failBooking != nil {
		return nil, s.b.failBooking
	}
	for _, id := range req.SeatIDs {
		if s.b.holds[id] != s.id {
			return nil, errors.Mark(errors.Newf("seat %d not held", id), ErrStaleState)
		}
	}
	for _, id := range req.SeatIDs {
		delete(s.b.holds, id)
		s.b.booked[id] = true
	}
	s.b.bookings = append(s.b.bookings, req)
	return &model.Booking{
		ID:            uint64(len(s.b.bookings)),
		OperatorID:    s.id,
		ShowtimeID:    req.ShowtimeID,
		Type:          req.Type,
		PaymentMethod: req.PaymentMethod,
		SeatIDs:       req.SeatIDs,
		FoodDrinks:    req.FoodDrinks,
	}, nil
}

type fakeGateway struct {
	err   error
	calls int
}

func (g *fakeGateway) CheckoutPrepaid(_ context.Context, amount int64, bookingID uint64) (*model.PaymentCheckout, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &model.PaymentCheckout{BookingID: bookingID, PaymentID: "pay-1", RedirectURL: "https://pay.example/pay-1"}, nil
}

type fakeChannel struct {
	mu     sync.Mutex
	events chan model.SeatUpdateEvent
	left   []uint64
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan model.SeatUpdateEvent, 16)}
}

func (c *fakeChannel) Join(context.Context, uint64) (<-chan model.SeatUpdateEvent, error) {
	return c.events, nil
}

func (c *fakeChannel) Leave(showtimeID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = append(c.left, showtimeID)
	return nil
}
