package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/seating"
)

func TestAggregate_Precedence(t *testing.T) {
	cat, err := seating.Resolve(newBackend().room)
	require.NoError(t, err)

	booked := []model.BookedSeat{{SeatID: 1}}
	held := []model.HeldSeat{{SeatID: 1}, {SeatID: 2}, {SeatID: 3}, {SeatID: 11}}
	v := Aggregate(cat, booked, held, []uint64{2}, []uint64{3})

	assert.Equal(t, []string{"A1"}, v.Booked)
	assert.Equal(t, []string{"A2"}, v.Selected)
	assert.Equal(t, []string{"A3"}, v.Pending)
	assert.Equal(t, []string{"B1"}, v.HeldByOthers)
	assert.Equal(t, StateAvailable, v.StateOf("A5"))
	assert.Equal(t, StateUnavailable, v.StateOf("Q1"))
}

func TestAggregate_UnknownSeatIDs(t *testing.T) {
	cat, err := seating.Resolve(newBackend().room)
	require.NoError(t, err)

	v := Aggregate(cat, []model.BookedSeat{{SeatID: 404}}, []model.HeldSeat{{SeatID: 404}}, nil, nil)
	assert.Equal(t, []uint64{404}, v.Unknown)
	assert.Empty(t, v.Booked)
}

func TestView_UnitStateOfCouple(t *testing.T) {
	cat, err := seating.Resolve(newBackend().room)
	require.NoError(t, err)
	pair, ok := cat.UnitByLabel("A5-6")
	require.True(t, ok)

	assert.Equal(t, StateSelected, Aggregate(cat, nil, nil, []uint64{5, 6}, nil).UnitState(pair))
	assert.Equal(t, StatePending, Aggregate(cat, nil, nil, []uint64{5}, nil).UnitState(pair))
	assert.Equal(t, StateHeldByOther, Aggregate(cat, nil, []model.HeldSeat{{SeatID: 6}}, []uint64{5}, nil).UnitState(pair))
	assert.Equal(t, StateBooked, Aggregate(cat, []model.BookedSeat{{SeatID: 5}}, nil, nil, nil).UnitState(pair))
}

func TestAggregate_NilCatalog(t *testing.T) {
	v := Aggregate(nil, []model.BookedSeat{{SeatID: 1}}, nil, nil, nil)
	assert.Empty(t, v.Booked)
	assert.Equal(t, StateUnavailable, v.StateOf("A1"))
}
