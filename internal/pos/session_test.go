package pos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-pos/internal/model"
)

func openSession(t *testing.T, b *backend, operatorID uint64, opts ...Option) *Session {
	t.Helper()
	s := NewSession(b.as(operatorID), nil, opts...)
	require.NoError(t, s.SelectShowtime(context.Background(), testShowtimeID))
	return s
}

func TestSession_ConcurrentHoldsHaveOneWinner(t *testing.T) {
	b := newBackend()
	s1 := openSession(t, b, 1)
	s2 := openSession(t, b, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, s := range []*Session{s1, s2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Click(context.Background(), "A1")
		}()
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.True(t, errors.Is(err, ErrSeatConflict))
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, len(s1.View().Selected)+len(s2.View().Selected))
}

func TestSession_ClickTogglesHold(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)

	out, err := s.Click(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, ClickHeld, out)
	assert.Equal(t, []string{"A1"}, s.View().Selected)
	assert.Equal(t, uint64(1), b.holder(1))

	out, err = s.Click(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, ClickReleased, out)
	assert.Empty(t, s.View().Selected)
	assert.Zero(t, b.holder(1))

	// releasing an already released seat is a no-op
	require.NoError(t, b.as(1).ReleaseSeat(ctx, testShowtimeID, 1))
}

func TestSession_ClickRejectsSeatHeldByOther(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s2 := openSession(t, b, 2)
	_, err := s2.Click(ctx, "A3")
	require.NoError(t, err)

	s1 := openSession(t, b, 1)
	assert.Equal(t, StateHeldByOther, s1.View().StateOf("A3"))

	_, err = s1.Click(ctx, "A3")
	assert.True(t, errors.Is(err, ErrSeatConflict))
	assert.Empty(t, s1.View().Selected)
	assert.Equal(t, uint64(2), b.holder(3))
}

func TestSession_UnknownLabel(t *testing.T) {
	s := openSession(t, newBackend(), 1)
	_, err := s.Click(context.Background(), "Z9")
	assert.True(t, errors.Is(err, ErrUnknownSeat))
}

func TestSession_CouplePairIsHeldTogether(t *testing.T) {
	b := newBackend()
	s := openSession(t, b, 1)

	out, err := s.Click(context.Background(), "A6")
	require.NoError(t, err)
	assert.Equal(t, ClickHeld, out)
	assert.Equal(t, []string{"A5", "A6"}, s.View().Selected)
	assert.Equal(t, uint64(1), b.holder(5))
	assert.Equal(t, uint64(1), b.holder(6))

	out, err = s.Click(context.Background(), "A5")
	require.NoError(t, err)
	assert.Equal(t, ClickReleased, out)
	assert.Zero(t, b.holder(5))
	assert.Zero(t, b.holder(6))
}

func TestSession_CoupleHoldRollsBackOnHalfFailure(t *testing.T) {
	b := newBackend()
	s := openSession(t, b, 1)
	b.failHold[6] = errors.Mark(errors.New("seat 6 held"), ErrSeatConflict)

	_, err := s.Click(context.Background(), "A5-6")
	assert.True(t, errors.Is(err, ErrSeatConflict))

	assert.Zero(t, b.holder(5))
	assert.Equal(t, 1, b.releases[5])
	v := s.View()
	assert.Empty(t, v.Selected)
	assert.Empty(t, v.Pending)
}

func TestSession_RefreshDropsBookedAndExpiredSeats(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	for _, l := range []string{"A1", "A2", "A3"} {
		_, err := s.Click(ctx, l)
		require.NoError(t, err)
	}

	b.book(1)
	b.expire(2)
	require.NoError(t, s.Refresh(ctx))

	v := s.View()
	assert.Equal(t, []string{"A3"}, v.Selected)
	assert.Equal(t, []string{"A1"}, v.Booked)
}

func TestSession_ViewSetsAreDisjoint(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s2 := openSession(t, b, 2)
	_, err := s2.Click(ctx, "B1")
	require.NoError(t, err)
	b.book(3)

	s := openSession(t, b, 1)
	_, err = s.Click(ctx, "A1")
	require.NoError(t, err)

	v := s.View()
	seen := map[string]bool{}
	for _, set := range [][]string{v.Booked, v.HeldByOthers, v.Selected, v.Pending} {
		for _, n := range set {
			assert.False(t, seen[n], "seat %s in more than one set", n)
			seen[n] = true
		}
	}
	assert.Equal(t, []string{"A3"}, v.Booked)
	assert.Equal(t, []string{"B1"}, v.HeldByOthers)
	assert.Equal(t, []string{"A1"}, v.Selected)
}

func TestSession_BookedEventDropsWholeCouple(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	_, err := s.Click(ctx, "A5-6")
	require.NoError(t, err)

	b.book(5)
	require.NoError(t, s.Reconcile(ctx, model.SeatUpdateEvent{
		ShowtimeID: testShowtimeID, SeatID: 5, Status: model.SeatEventBooked, Version: 3,
	}))

	v := s.View()
	assert.Empty(t, v.Selected)
	assert.Equal(t, []string{"A5"}, v.Booked)
	// the surviving half is released, not left dangling
	assert.Equal(t, 1, b.releases[6])
	assert.Zero(t, b.holder(6))
}

func TestSession_StaleEventsAreIgnored(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)

	require.NoError(t, s.Reconcile(ctx, model.SeatUpdateEvent{
		ShowtimeID: testShowtimeID, SeatID: 1, Status: model.SeatEventHeld, Version: 4,
	}))
	b.expire(1)

	require.NoError(t, s.Reconcile(ctx, model.SeatUpdateEvent{
		ShowtimeID: testShowtimeID, SeatID: 1, Status: model.SeatEventReleased, Version: 3,
	}))
	assert.Equal(t, []string{"A1"}, s.View().Selected)

	require.NoError(t, s.Reconcile(ctx, model.SeatUpdateEvent{
		ShowtimeID: testShowtimeID, SeatID: 1, Status: model.SeatEventReleased, Version: 5,
	}))
	assert.Empty(t, s.View().Selected)
}

func TestSession_EventsForOtherShowtimesAreIgnored(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)
	b.book(1)

	require.NoError(t, s.Reconcile(ctx, model.SeatUpdateEvent{
		ShowtimeID: testShowtimeID + 1, SeatID: 1, Status: model.SeatEventBooked, Version: 9,
	}))
	assert.Equal(t, []string{"A1"}, s.View().Selected)
}

func TestSession_LiveChannelDrivesReconcile(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	ch := newFakeChannel()
	s := NewSession(b.as(1), ch)
	require.NoError(t, s.SelectShowtime(ctx, testShowtimeID))
	_, err := s.Click(ctx, "A2")
	require.NoError(t, err)

	b.book(2)
	ch.events <- model.SeatUpdateEvent{ShowtimeID: testShowtimeID, SeatID: 2, Status: model.SeatEventBooked, Version: 2}

	require.Eventually(t, func() bool {
		v := s.View()
		return len(v.Selected) == 0 && len(v.Booked) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSession_AbandonReleasesEverySelectedSeat(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	ch := newFakeChannel()
	s := NewSession(b.as(1), ch)
	require.NoError(t, s.SelectShowtime(ctx, testShowtimeID))
	for _, l := range []string{"A1", "A2", "B1"} {
		_, err := s.Click(ctx, l)
		require.NoError(t, err)
	}

	s.Abandon(ctx)

	assert.Equal(t, 3, b.releaseCalls())
	assert.Equal(t, []uint64{testShowtimeID}, ch.left)
	assert.Nil(t, s.Showtime())
	for _, id := range []uint64{1, 2, 11} {
		assert.Zero(t, b.holder(id))
	}
	_, err := s.Click(ctx, "A1")
	assert.True(t, errors.Is(err, ErrNoShowtime))
}

func TestSession_AbandonToleratesReleaseFailures(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	for _, l := range []string{"A1", "A2"} {
		_, err := s.Click(ctx, l)
		require.NoError(t, err)
	}
	b.failRelease[1] = errors.New("connection reset")

	s.Abandon(ctx)
	assert.Equal(t, 2, b.releaseCalls())
	assert.Empty(t, s.View().Selected)
}

func TestSession_CatalogFailureDisablesSeats(t *testing.T) {
	b := newBackend()
	b.roomErr = errors.New("room service down")
	s := NewSession(b.as(1), nil)

	err := s.SelectShowtime(context.Background(), testShowtimeID)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))

	_, err = s.Click(context.Background(), "A1")
	assert.Error(t, err)
}

func TestSession_SetFoodDrink(t *testing.T) {
	s := openSession(t, newBackend(), 1)

	require.NoError(t, s.SetFoodDrink(1, 2))
	require.NoError(t, s.SetFoodDrink(1, 3))
	assert.Equal(t, []model.FoodDrinkLineItem{{FoodDrinkID: 1, Quantity: 3}}, s.FoodDrinks())

	require.NoError(t, s.SetFoodDrink(1, 0))
	assert.Empty(t, s.FoodDrinks())

	assert.Error(t, s.SetFoodDrink(1, -1))
	assert.Error(t, s.SetFoodDrink(99, 1))
}

func TestFinalize_ClearsSelectionOnSuccess(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	for _, l := range []string{"A1", "A5-6"} {
		_, err := s.Click(ctx, l)
		require.NoError(t, err)
	}
	require.NoError(t, s.SetFoodDrink(1, 2))

	q, err := s.Quote()
	require.NoError(t, err)
	assert.Equal(t, int64(460000), q.Total)

	res, err := s.Finalize(ctx, model.PayOnPickup)
	require.NoError(t, err)
	assert.Equal(t, q.Total, res.Quote.Total)
	assert.Nil(t, res.Checkout)

	require.Len(t, b.bookings, 1)
	assert.ElementsMatch(t, []uint64{1, 5, 6}, b.bookings[0].SeatIDs)
	assert.Equal(t, model.BookingOffline, b.bookings[0].Type)
	assert.Empty(t, s.View().Selected)
	assert.Empty(t, s.FoodDrinks())
}

func TestFinalize_KeepsSelectionOnFailure(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)
	b.failBooking = errors.New("db unavailable")

	_, err = s.Finalize(ctx, model.PayOnPickup)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStaleState))
	assert.Equal(t, []string{"A1"}, s.View().Selected)
	assert.False(t, s.View().Finalizing)
}

func TestFinalize_StaleHoldRefreshesState(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	for _, l := range []string{"A1", "A2"} {
		_, err := s.Click(ctx, l)
		require.NoError(t, err)
	}
	b.expire(2)

	_, err := s.Finalize(ctx, model.PayOnPickup)
	assert.True(t, errors.Is(err, ErrStaleState))
	assert.Equal(t, []string{"A1"}, s.View().Selected)
	assert.Empty(t, b.bookings)
}

func TestFinalize_EmptySelection(t *testing.T) {
	s := openSession(t, newBackend(), 1)
	_, err := s.Finalize(context.Background(), model.PayOnPickup)
	assert.True(t, errors.Is(err, ErrEmptySelection))
}

func TestFinalize_RejectsClicksWhileInFlight(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)

	gate := make(chan struct{})
	b.bookGate = gate
	done := make(chan error, 1)
	go func() {
		_, err := s.Finalize(ctx, model.PayOnPickup)
		done <- err
	}()
	require.Eventually(t, func() bool { return s.View().Finalizing }, time.Second, 5*time.Millisecond)

	_, err = s.Click(ctx, "A2")
	assert.True(t, errors.Is(err, ErrFinalizeInFlight))
	_, err = s.Finalize(ctx, model.PayOnPickup)
	assert.True(t, errors.Is(err, ErrFinalizeInFlight))

	close(gate)
	require.NoError(t, <-done)
	assert.Len(t, b.bookings, 1)
	assert.Zero(t, b.holder(2))
}

func TestFinalize_Prepaid(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	gw := &fakeGateway{}
	s := openSession(t, b, 1, WithGateway(gw), WithBookingType(model.BookingOnline))
	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)

	res, err := s.Finalize(ctx, model.Prepaid)
	require.NoError(t, err)
	require.NotNil(t, res.Checkout)
	assert.Equal(t, res.Booking.ID, res.Checkout.BookingID)
	assert.False(t, res.PayOnPickupFallback)
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, model.BookingOnline, b.bookings[0].Type)
}

func TestFinalize_PrepaidFallsBackToPickup(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	gw := &fakeGateway{err: errors.New("gateway timeout")}
	s := openSession(t, b, 1, WithGateway(gw))
	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)

	res, err := s.Finalize(ctx, model.Prepaid)
	assert.True(t, errors.Is(err, ErrPaymentInitiation))
	require.NotNil(t, res)
	assert.True(t, res.PayOnPickupFallback)
	assert.NotNil(t, res.Booking)
	assert.Empty(t, s.View().Selected)
}

func TestFinalize_PrepaidNeedsGateway(t *testing.T) {
	ctx := context.Background()
	s := openSession(t, newBackend(), 1)
	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)

	_, err = s.Finalize(ctx, model.Prepaid)
	assert.True(t, errors.Is(err, ErrNoGateway))
	assert.Equal(t, []string{"A1"}, s.View().Selected)
}

func TestSession_OnChangeReceivesViews(t *testing.T) {
	var mu sync.Mutex
	var views []View
	s := openSession(t, newBackend(), 1, WithOnChange(func(v View) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	}))
	_, err := s.Click(context.Background(), "A1")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, views)
	assert.Equal(t, []string{"A1"}, views[len(views)-1].Selected)
}

func TestFinalize_ShowtimeSwitchKeepsNewSelection(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)
	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)

	// the hold on A1 survives the abandon so the booking still lands
	b.failRelease[1] = errors.New("connection reset")
	gate := make(chan struct{})
	b.bookGate = gate
	done := make(chan error, 1)
	go func() {
		_, err := s.Finalize(ctx, model.PayOnPickup)
		done <- err
	}()
	require.Eventually(t, func() bool { return s.View().Finalizing }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.SelectShowtime(ctx, testShowtimeID+1))
	_, err = s.Click(ctx, "A2")
	require.NoError(t, err)

	close(gate)
	require.NoError(t, <-done)
	assert.Len(t, b.bookings, 1)

	v := s.View()
	assert.Equal(t, []string{"A2"}, v.Selected)
	assert.False(t, v.Finalizing)
	assert.Equal(t, uint64(1), b.holder(2))

	s.Abandon(ctx)
	assert.Equal(t, 1, b.releases[2])
	assert.Zero(t, b.holder(2))
}

func TestSession_ExpiryAfterReholdDropsSeat(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 1)

	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)
	b.expire(1)
	out, err := s.Click(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, ClickReleased, out)
	_, err = s.Click(ctx, "A1")
	require.NoError(t, err)
	b.expire(1)

	// the earlier deselect must not mask this expiry
	require.NoError(t, s.Reconcile(ctx, model.SeatUpdateEvent{
		ShowtimeID: testShowtimeID, SeatID: 1, Status: model.SeatEventReleased, Version: 9,
	}))
	assert.Empty(t, s.View().Selected)
}

// laggingStore serves a held-seat snapshot taken before the last hold.
type laggingStore struct {
	*operatorStore
	lag []model.HeldSeat
}

func (l *laggingStore) HeldSeats(ctx context.Context, showtimeID uint64) ([]model.HeldSeat, error) {
	if l.lag != nil {
		return l.lag, nil
	}
	return l.operatorStore.HeldSeats(ctx, showtimeID)
}

func TestSession_ReleaseEventDropsOnlyForeignReleases(t *testing.T) {
	for _, tc := range []struct {
		name    string
		actorID uint64
		kept    bool
	}{
		{name: "own release", actorID: 1, kept: true},
		{name: "expiry", actorID: 0, kept: false},
		{name: "other operator", actorID: 2, kept: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend()
			store := &laggingStore{operatorStore: b.as(1)}
			s := NewSession(store, nil, WithOperatorID(1))
			require.NoError(t, s.SelectShowtime(ctx, testShowtimeID))

			_, err := s.Click(ctx, "A1")
			require.NoError(t, err)
			_, err = s.Click(ctx, "A1")
			require.NoError(t, err)
			_, err = s.Click(ctx, "A1")
			require.NoError(t, err)

			store.lag = []model.HeldSeat{}
			require.NoError(t, s.Reconcile(ctx, model.SeatUpdateEvent{
				ShowtimeID: testShowtimeID, SeatID: 1, Status: model.SeatEventReleased,
				Version: 2, ActorID: tc.actorID,
			}))
			if tc.kept {
				assert.Equal(t, []string{"A1"}, s.View().Selected)
				assert.Equal(t, uint64(1), b.holder(1))
			} else {
				assert.Empty(t, s.View().Selected)
			}
		})
	}
}

func TestSession_LearnsOperatorFromFirstHold(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	s := openSession(t, b, 3)
	_, err := s.Click(ctx, "A1")
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, uint64(3), s.self)
}
