package seating

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-pos/internal/model"
)

func TestPrice_NormalVIPCoupleAndFood(t *testing.T) {
	room := &model.Room{ID: 1, Seats: []model.Seat{
		seat(1, "A", 1, model.SeatNormal, 0),
		seat(2, "A", 2, model.SeatVIP, 20000),
		seat(5, "C", 5, model.SeatCouple, 30000),
		seat(6, "C", 6, model.SeatCouple, 30000),
	}}
	c, err := Resolve(room)
	require.NoError(t, err)

	menu := Menu([]model.FoodDrink{{ID: 7, Name: "Popcorn", Price: 25000}})
	items := []model.FoodDrinkLineItem{{FoodDrinkID: 7, Quantity: 2}}

	q, err := Price(c.Units([]uint64{1, 2, 5, 6}), 100000, items, menu)
	require.NoError(t, err)

	assert.Equal(t, int64(480000), q.SeatTotal)
	assert.Equal(t, int64(50000), q.FoodDrinkTotal)
	assert.Equal(t, int64(530000), q.Total)

	require.Len(t, q.Seats, 3)
	assert.Equal(t, Line{Label: "C5-6", Quantity: 2, UnitPrice: 130000, Amount: 260000}, q.Seats[2])
}

func TestPrice_ZeroQuantityIsSkipped(t *testing.T) {
	menu := Menu([]model.FoodDrink{{ID: 7, Name: "Popcorn", Price: 25000}})
	q, err := Price(nil, 100000, []model.FoodDrinkLineItem{{FoodDrinkID: 7, Quantity: 0}}, menu)
	require.NoError(t, err)
	assert.Empty(t, q.FoodDrinks)
	assert.Zero(t, q.Total)
}

func TestPrice_RejectsBadLineItems(t *testing.T) {
	menu := Menu([]model.FoodDrink{{ID: 7, Name: "Popcorn", Price: 25000}})

	_, err := Price(nil, 0, []model.FoodDrinkLineItem{{FoodDrinkID: 7, Quantity: -1}}, menu)
	assert.True(t, errors.Is(err, ErrInvalidQuantity))

	_, err = Price(nil, 0, []model.FoodDrinkLineItem{{FoodDrinkID: 8, Quantity: 1}}, menu)
	assert.True(t, errors.Is(err, ErrUnknownFoodDrink))
}

func TestPrice_NeverNegative(t *testing.T) {
	u := Unit{Label: "A1", Seats: []model.Seat{seat(1, "A", 1, model.SeatNormal, -50000)}}
	q, err := Price([]Unit{u}, 10000, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.Total)
}
