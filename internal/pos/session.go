package pos

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/seating"
)

// ClickOutcome reports what a click did to the Selection.
type ClickOutcome int

const (
	ClickHeld ClickOutcome = iota + 1
	ClickReleased
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l observability.Logger) Option { return func(s *Session) { s.log = l } }

// WithGateway enables prepaid bookings.
func WithGateway(g PaymentGateway) Option { return func(s *Session) { s.gateway = g } }

// WithOnChange registers a callback receiving every new View.  It is
// called without the session lock held, possibly from the live update
// goroutine.
func WithOnChange(fn func(View)) Option { return func(s *Session) { s.onChange = fn } }

// WithOperatorID names the operator the store acts for, so live events
// caused by this terminal can be told apart from expiry and other
// terminals.
func WithOperatorID(id uint64) Option { return func(s *Session) { s.self = id } }

// WithBookingType sets the type stamped on bookings (OFFLINE by default).
func WithBookingType(t model.BookingType) Option { return func(s *Session) { s.bookingType = t } }

// Session is one operator's booking flow.  A hold enters the Selection
// only after the store acknowledges it; while in flight the seat is
// shown as pending.  No lock is held across a store round trip.
type Session struct {
	store       Store
	channel     Channel
	gateway     PaymentGateway
	coord       *Coordinator
	log         observability.Logger
	onChange    func(View)
	bookingType model.BookingType

	mu          sync.Mutex
	showtime    *model.Showtime
	catalog     *seating.Catalog
	menu        map[uint64]model.FoodDrink
	booked      []model.BookedSeat
	held        []model.HeldSeat
	stale       bool
	selection   *Selection
	pending     map[uint64]bool
	versions    map[uint64]uint64
	foods       []model.FoodDrinkLineItem
	finalizing  bool

	// gen changes whenever the showtime is left.
	gen uint64
	// self is the operator behind the store, learned from the first
	// acknowledged hold when not configured.
	self uint64

	stopEvents context.CancelFunc
	eventsDone chan struct{}
}

// NewSession returns an idle session.  channel may be nil, in which case
// the seat map only changes on the operator's own actions and Refresh.
func NewSession(store Store, channel Channel, opts ...Option) *Session {
	s := &Session{
		store:       store,
		channel:     channel,
		bookingType: model.BookingOffline,
		selection:   NewSelection(),
		pending:     make(map[uint64]bool),
		versions:    make(map[uint64]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = observability.Discard()
	}
	s.coord = NewCoordinator(store, s.log)
	return s
}

// SelectShowtime abandons the current showtime, loads the seat map of
// the new one and joins its live channel.  A catalog failure returns an
// error marked ErrCatalogUnavailable and leaves seat interaction
// disabled.
func (s *Session) SelectShowtime(ctx context.Context, showtimeID uint64) error {
	s.Abandon(ctx)

	st, err := s.store.Showtime(ctx, showtimeID)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "load showtime %d", showtimeID), ErrCatalogUnavailable)
	}
	room, err := s.store.Room(ctx, st.RoomID)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "load room %d", st.RoomID), ErrCatalogUnavailable)
	}
	cat, err := seating.Resolve(room)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "resolve room %d", st.RoomID), ErrCatalogUnavailable)
	}
	menu := map[uint64]model.FoodDrink{}
	if items, err := s.store.FoodDrinks(ctx); err != nil {
		s.log.WithError(err).Warn("food/drink menu unavailable")
	} else {
		menu = seating.Menu(items)
	}

	s.mu.Lock()
	s.showtime = st
	s.catalog = cat
	s.menu = menu
	s.stale = true
	s.mu.Unlock()

	log := s.log.WithField("showtime_id", showtimeID)
	if s.channel != nil {
		events, err := s.channel.Join(ctx, showtimeID)
		if err != nil {
			log.WithError(err).Warn("live updates unavailable for showtime")
		} else {
			loopCtx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			s.mu.Lock()
			s.stopEvents, s.eventsDone = cancel, done
			s.mu.Unlock()
			go s.run(loopCtx, events, done)
		}
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}
	log.WithField("seats", cat.Len()).Info("showtime selected")
	return nil
}

func (s *Session) run(ctx context.Context, events <-chan model.SeatUpdateEvent, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.Reconcile(ctx, ev); err != nil {
				s.log.WithError(err).WithField("seat_id", ev.SeatID).Warn("seat update reconcile failed")
			}
		}
	}
}

// Refresh re-fetches the booked and held lists.  Selected seats that
// are now booked, or whose hold disappeared, leave the Selection.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.showtime == nil {
		s.mu.Unlock()
		return ErrNoShowtime
	}
	showtimeID, gen := s.showtime.ID, s.gen
	before := s.selection.IDs()
	s.mu.Unlock()

	var (
		booked []model.BookedSeat
		held   []model.HeldSeat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		booked, err = s.store.BookedSeats(gctx, showtimeID)
		return errors.Wrap(err, "booked seats")
	})
	g.Go(func() (err error) {
		held, err = s.store.HeldSeats(gctx, showtimeID)
		return errors.Wrap(err, "held seats")
	})
	if err := g.Wait(); err != nil {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return errors.Wrapf(err, "refresh showtime %d", showtimeID)
		}
		s.stale = true
		view := s.viewLocked()
		s.mu.Unlock()
		s.notify(view)
		return errors.Wrapf(err, "refresh showtime %d", showtimeID)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	s.booked, s.held, s.stale = booked, held, false
	var orphans []uint64
	for _, b := range booked {
		orphans = append(orphans, s.dropUnitLocked(b.SeatID)...)
	}
	heldSet := heldIDs(held)
	for _, id := range before {
		if s.selection.Has(id) && !heldSet[id] {
			s.log.WithField("seat_id", id).Info("hold expired, dropping seat from selection")
			orphans = append(orphans, s.dropUnitLocked(id)...)
		}
	}
	view := s.viewLocked()
	s.mu.Unlock()

	s.releaseOrphans(ctx, showtimeID, orphans)
	s.notify(view)
	return nil
}

// Reconcile applies one live seat update.  The event only triggers a
// re-fetch; final seat state always comes from the store.  Events older
// than the last one seen for the seat change nothing but the lists.
func (s *Session) Reconcile(ctx context.Context, ev model.SeatUpdateEvent) error {
	s.mu.Lock()
	if s.showtime == nil || s.showtime.ID != ev.ShowtimeID {
		s.mu.Unlock()
		return nil
	}
	showtimeID, gen := s.showtime.ID, s.gen
	stale := ev.Version != 0 && ev.Version <= s.versions[ev.SeatID]
	if !stale && ev.Version != 0 {
		s.versions[ev.SeatID] = ev.Version
	}
	// a release this operator issued must not drop a seat re-held since
	own := ev.Status == model.SeatEventReleased && s.self != 0 && ev.ActorID == s.self
	s.mu.Unlock()

	held, err := s.store.HeldSeats(ctx, showtimeID)
	if err != nil {
		return errors.Wrap(err, "refresh held seats")
	}
	var booked []model.BookedSeat
	refreshBooked := ev.Status == model.SeatEventBooked || stale
	if refreshBooked {
		if booked, err = s.store.BookedSeats(ctx, showtimeID); err != nil {
			return errors.Wrap(err, "refresh booked seats")
		}
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	s.held = held
	var orphans []uint64
	if refreshBooked {
		s.booked = booked
		for _, b := range booked {
			orphans = append(orphans, s.dropUnitLocked(b.SeatID)...)
		}
	}
	if !stale {
		switch ev.Status {
		case model.SeatEventBooked:
			orphans = append(orphans, s.dropUnitLocked(ev.SeatID)...)
		case model.SeatEventReleased:
			if !own && s.selection.Has(ev.SeatID) && !heldIDs(held)[ev.SeatID] {
				orphans = append(orphans, s.dropUnitLocked(ev.SeatID)...)
			}
		}
	}
	view := s.viewLocked()
	s.mu.Unlock()

	s.releaseOrphans(ctx, showtimeID, orphans)
	s.notify(view)
	return nil
}

// Click applies the toggle protocol to the seat or couple pair named by
// label: a selected unit is released, an available one is held, and a
// unit held by someone else or booked is rejected with ErrSeatConflict.
func (s *Session) Click(ctx context.Context, label string) (ClickOutcome, error) {
	s.mu.Lock()
	if s.showtime == nil {
		s.mu.Unlock()
		return 0, ErrNoShowtime
	}
	if s.catalog == nil {
		s.mu.Unlock()
		return 0, ErrCatalogUnavailable
	}
	if s.finalizing {
		s.mu.Unlock()
		return 0, ErrFinalizeInFlight
	}
	unit, ok := s.catalog.UnitByLabel(label)
	if !ok {
		s.mu.Unlock()
		return 0, errors.Wrapf(ErrUnknownSeat, "%q", label)
	}
	ids := unit.SeatIDs()
	for _, id := range ids {
		if s.pending[id] {
			s.mu.Unlock()
			return 0, errors.Wrapf(ErrSeatPending, "%s", unit.Label)
		}
	}
	showtimeID, gen := s.showtime.ID, s.gen

	if s.selection.HasAny(ids) {
		for _, id := range ids {
			s.selection.Remove(id)
			s.pending[id] = true
		}
		view := s.viewLocked()
		s.mu.Unlock()
		s.notify(view)
		return ClickReleased, s.release(ctx, showtimeID, unit)
	}

	view := s.viewLocked()
	switch st := view.UnitState(unit); st {
	case StateBooked, StateHeldByOther, StateUnavailable:
		s.mu.Unlock()
		return 0, errors.Wrapf(ErrSeatConflict, "%s is %s", unit.Label, st)
	}
	for _, id := range ids {
		s.pending[id] = true
	}
	view = s.viewLocked()
	s.mu.Unlock()
	s.notify(view)

	held, err := s.coord.RequestHold(ctx, showtimeID, unit)

	s.mu.Lock()
	for _, id := range ids {
		delete(s.pending, id)
	}
	if s.gen != gen {
		s.mu.Unlock()
		if err == nil {
			s.coord.ReleaseAll(context.WithoutCancel(ctx), showtimeID, ids)
		}
		return 0, errors.Wrapf(ErrNoShowtime, "showtime %d left while holding %s", showtimeID, unit.Label)
	}
	if err != nil {
		view = s.viewLocked()
		s.mu.Unlock()
		s.notify(view)
		if errors.Is(err, ErrSeatConflict) {
			if rerr := s.Refresh(ctx); rerr != nil {
				s.log.WithError(rerr).Warn("refresh after conflict failed")
			}
		}
		return 0, err
	}
	for _, h := range held {
		s.selection.Add(h)
		if s.self == 0 {
			s.self = h.HeldBy
		}
	}
	view = s.viewLocked()
	s.mu.Unlock()
	s.notify(view)
	return ClickHeld, nil
}

// release finishes a deselect.  The seats already left the Selection;
// a failed release is logged and left to server-side expiry.
func (s *Session) release(ctx context.Context, showtimeID uint64, unit seating.Unit) error {
	err := s.coord.RequestRelease(ctx, showtimeID, unit)

	s.mu.Lock()
	for _, id := range unit.SeatIDs() {
		delete(s.pending, id)
	}
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)

	if err != nil {
		s.log.WithError(err).WithField("unit", unit.Label).Warn("release failed, hold will expire server-side")
	}
	return nil
}

// SetFoodDrink sets the quantity of a concession item; zero removes it.
func (s *Session) SetFoodDrink(foodDrinkID uint64, quantity int) error {
	if quantity < 0 {
		return errors.Wrapf(seating.ErrInvalidQuantity, "food/drink %d: quantity %d", foodDrinkID, quantity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showtime == nil {
		return ErrNoShowtime
	}
	if s.finalizing {
		return ErrFinalizeInFlight
	}
	if _, ok := s.menu[foodDrinkID]; !ok {
		return errors.Wrapf(seating.ErrUnknownFoodDrink, "food/drink %d", foodDrinkID)
	}
	for i, it := range s.foods {
		if it.FoodDrinkID != foodDrinkID {
			continue
		}
		if quantity == 0 {
			s.foods = append(s.foods[:i], s.foods[i+1:]...)
		} else {
			s.foods[i].Quantity = quantity
		}
		return nil
	}
	if quantity > 0 {
		s.foods = append(s.foods, model.FoodDrinkLineItem{FoodDrinkID: foodDrinkID, Quantity: quantity})
	}
	return nil
}

// FoodDrinks returns the current line items.
func (s *Session) FoodDrinks() []model.FoodDrinkLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FoodDrinkLineItem(nil), s.foods...)
}

// Menu returns the concession items loaded with the showtime.
func (s *Session) Menu() []model.FoodDrink {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FoodDrink, 0, len(s.menu))
	for _, fd := range s.menu {
		out = append(out, fd)
	}
	return out
}

// Quote prices the current Selection and line items.
func (s *Session) Quote() (seating.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteLocked()
}

func (s *Session) quoteLocked() (seating.Quote, error) {
	if s.showtime == nil || s.catalog == nil {
		return seating.Quote{}, ErrNoShowtime
	}
	units := s.catalog.Units(s.selection.IDs())
	return seating.Price(units, s.showtime.BasePrice, s.foods, s.menu)
}

// View returns the current display state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Catalog returns the resolved seat map, or nil when none is loaded.
func (s *Session) Catalog() *seating.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Showtime returns the active showtime, or nil.
func (s *Session) Showtime() *model.Showtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showtime
}

// Abandon leaves the showtime: it stops live updates and releases every
// held seat.  Release failures are logged only.
func (s *Session) Abandon(ctx context.Context) {
	s.mu.Lock()
	st := s.showtime
	ids := s.selection.IDs()
	stop, done := s.stopEvents, s.eventsDone
	s.resetLocked()
	s.mu.Unlock()

	if st == nil {
		return
	}
	if stop != nil {
		stop()
	}
	if s.channel != nil {
		if err := s.channel.Leave(st.ID); err != nil {
			s.log.WithError(err).WithField("showtime_id", st.ID).Warn("leave live channel failed")
		}
	}
	if done != nil {
		<-done
	}
	if len(ids) > 0 {
		failed := s.coord.ReleaseAll(context.WithoutCancel(ctx), st.ID, ids)
		s.log.WithField("showtime_id", st.ID).WithField("released", len(ids)-failed).
			WithField("failed", failed).Info("abandoned showtime")
	}
	s.notify(View{})
}

// Close abandons the active showtime.
func (s *Session) Close(ctx context.Context) { s.Abandon(ctx) }

func (s *Session) resetLocked() {
	s.showtime = nil
	s.catalog = nil
	s.menu = nil
	s.booked, s.held = nil, nil
	s.stale = false
	s.selection = NewSelection()
	s.pending = make(map[uint64]bool)
	s.versions = make(map[uint64]uint64)
	s.foods = nil
	s.finalizing = false
	s.gen++
	s.stopEvents, s.eventsDone = nil, nil
}

// dropUnitLocked removes the unit containing seatID from the Selection
// and returns the other seats of the unit that were still selected:
// this operator still holds them and they must be released.
func (s *Session) dropUnitLocked(seatID uint64) []uint64 {
	if !s.selection.Has(seatID) {
		return nil
	}
	ids := []uint64{seatID}
	if s.catalog != nil {
		if u, ok := s.catalog.UnitOf(seatID); ok {
			ids = u.SeatIDs()
		}
	}
	var orphans []uint64
	for _, id := range ids {
		if s.selection.Remove(id) && id != seatID {
			orphans = append(orphans, id)
		}
	}
	return orphans
}

func (s *Session) releaseOrphans(ctx context.Context, showtimeID uint64, ids []uint64) {
	if len(ids) == 0 {
		return
	}
	s.coord.ReleaseAll(context.WithoutCancel(ctx), showtimeID, ids)
}

func (s *Session) viewLocked() View {
	pending := make([]uint64, 0, len(s.pending))
	for id := range s.pending {
		pending = append(pending, id)
	}
	v := Aggregate(s.catalog, s.booked, s.held, s.selection.IDs(), pending)
	if s.showtime != nil {
		v.ShowtimeID = s.showtime.ID
	}
	v.Finalizing = s.finalizing
	v.Stale = s.stale
	return v
}

func (s *Session) notify(v View) {
	if s.onChange != nil {
		s.onChange(v)
	}
}

func heldIDs(held []model.HeldSeat) map[uint64]bool {
	m := make(map[uint64]bool, len(held))
	for _, h := range held {
		m[h.SeatID] = true
	}
	return m
}
