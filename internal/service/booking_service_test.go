package service

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/repository"
	"github.com/iliyamo/cinema-pos/internal/seating"
)

func testCatalog(t *testing.T) *seating.Catalog {
	t.Helper()
	cat, err := seating.Resolve(&model.Room{
		ID: 1, Rows: 1, Cols: 6,
		Seats: []model.Seat{
			{ID: 1, Row: "A", Col: 1, SeatType: model.SeatNormal},
			{ID: 2, Row: "A", Col: 2, SeatType: model.SeatVIP, ExtraPrice: 20000},
			{ID: 4, Row: "A", Col: 5, SeatType: model.SeatCouple, ExtraPrice: 30000},
			{ID: 5, Row: "A", Col: 6, SeatType: model.SeatCouple, ExtraPrice: 30000},
		},
	})
	require.NoError(t, err)
	return cat
}

func TestCompleteUnits(t *testing.T) {
	cat := testCatalog(t)

	units, err := completeUnits(cat, []uint64{1, 5, 4})
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "A1", units[0].Label)
	assert.Equal(t, "A5-6", units[1].Label)

	_, err = completeUnits(cat, []uint64{1, 4})
	assert.True(t, errors.Is(err, ErrSplitCouple))

	_, err = completeUnits(cat, []uint64{1, 99})
	assert.True(t, errors.Is(err, repository.ErrUnknownSeat))
}

func TestSeatPrices(t *testing.T) {
	cat := testCatalog(t)
	units, err := completeUnits(cat, []uint64{2, 4, 5})
	require.NoError(t, err)

	assert.Equal(t, []repository.BookingSeat{
		{SeatID: 2, Price: 120000},
		{SeatID: 4, Price: 130000},
		{SeatID: 5, Price: 130000},
	}, seatPrices(units, 100000))
}

func TestMergeItems(t *testing.T) {
	items, err := mergeItems([]model.FoodDrinkLineItem{
		{FoodDrinkID: 1, Quantity: 2},
		{FoodDrinkID: 2, Quantity: 0},
		{FoodDrinkID: 1, Quantity: 1},
		{FoodDrinkID: 3, Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.FoodDrinkLineItem{{FoodDrinkID: 1, Quantity: 3}, {FoodDrinkID: 3, Quantity: 4}}, items)

	_, err = mergeItems([]model.FoodDrinkLineItem{{FoodDrinkID: 1, Quantity: -1}})
	assert.True(t, errors.Is(err, seating.ErrInvalidQuantity))
}

func TestSeatEventsOrderedBySeat(t *testing.T) {
	evs := seatEvents(7, map[uint64]uint64{9: 3, 2: 5}, model.SeatEventBooked, 4, nil)
	require.Len(t, evs, 2)
	assert.Equal(t, uint64(2), evs[0].SeatID)
	assert.Equal(t, uint64(5), evs[0].Version)
	assert.Equal(t, uint64(9), evs[1].SeatID)
	assert.Equal(t, uint64(4), evs[1].ActorID)
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []uint64{3, 1}, uniqueIDs([]uint64{3, 0, 1, 3}))
}

type ctxPublisher struct {
	errs   []error
	events int
}

func (p *ctxPublisher) PublishAll(ctx context.Context, evs []model.SeatUpdateEvent) {
	p.errs = append(p.errs, ctx.Err())
	p.events += len(evs)
}

func TestPublishCommitted_OutlivesCallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub := &ctxPublisher{}

	publishCommitted(ctx, pub, seatEvents(7, map[uint64]uint64{1: 2}, model.SeatEventReleased, 4, nil))
	require.Len(t, pub.errs, 1)
	assert.NoError(t, pub.errs[0])
	assert.Equal(t, 1, pub.events)

	publishCommitted(ctx, pub, nil)
	assert.Len(t, pub.errs, 1)
}
