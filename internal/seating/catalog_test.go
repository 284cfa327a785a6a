package seating

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-pos/internal/model"
)

func seat(id uint64, row string, col int, typ model.SeatType, extra int64) model.Seat {
	return model.Seat{ID: id, RoomID: 1, Row: row, Col: col, SeatType: typ, ExtraPrice: extra}
}

func testRoom() *model.Room {
	return &model.Room{
		ID:   1,
		Name: "Room 1",
		Rows: 2,
		Cols: 7,
		Seats: []model.Seat{
			seat(1, "A", 1, model.SeatNormal, 0),
			seat(2, "A", 2, model.SeatVIP, 20000),
			// A3 is an aisle
			seat(4, "A", 4, model.SeatNormal, 0),
			seat(5, "A", 5, model.SeatCouple, 30000),
			seat(6, "A", 6, model.SeatCouple, 30000),
			seat(7, "A", 7, model.SeatCouple, 30000),
			seat(11, "B", 1, model.SeatNormal, 0),
			seat(12, "B", 2, model.SeatNormal, 0),
		},
	}
}

func TestResolve_MissingRoomIsFatal(t *testing.T) {
	_, err := Resolve(nil)
	assert.True(t, errors.Is(err, ErrRoomUnavailable))

	_, err = Resolve(&model.Room{ID: 9})
	assert.True(t, errors.Is(err, ErrRoomUnavailable))
}

func TestResolve_RejectsAmbiguousSeats(t *testing.T) {
	room := testRoom()
	room.Seats[1].SeatNumber = "a1"
	_, err := Resolve(room)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share number A1")

	room = testRoom()
	room.Seats = append(room.Seats, seat(20, "b", 2, model.SeatNormal, 0))
	room.Seats[len(room.Seats)-1].SeatNumber = "B2X"
	_, err = Resolve(room)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share row B col 2")

	room = testRoom()
	room.Seats = append(room.Seats, seat(1, "C", 1, model.SeatNormal, 0))
	_, err = Resolve(room)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate seat id 1")
}

func TestResolve_PairsAdjacentCoupleSeats(t *testing.T) {
	c, err := Resolve(testRoom())
	require.NoError(t, err)

	u, ok := c.UnitOf(6)
	require.True(t, ok)
	assert.True(t, u.Couple())
	assert.Equal(t, "A5-6", u.Label)
	assert.Equal(t, []uint64{5, 6}, u.SeatIDs())

	left, _ := c.SeatByID(5)
	right, _ := c.SeatByID(6)
	assert.Equal(t, uint64(6), left.CoupleWith)
	assert.Equal(t, uint64(5), right.CoupleWith)

	// A7 has no partner left after A5-6 pairs.
	lone, ok := c.UnitOf(7)
	require.True(t, ok)
	assert.False(t, lone.Couple())
	assert.Equal(t, "A7", lone.Label)
}

func TestResolve_LabelLookup(t *testing.T) {
	c, err := Resolve(testRoom())
	require.NoError(t, err)

	for _, label := range []string{"A5", "a6", "A5-6"} {
		u, ok := c.UnitByLabel(label)
		require.True(t, ok, label)
		assert.Equal(t, "A5-6", u.Label)
	}
	_, ok := c.UnitByLabel("Z9")
	assert.False(t, ok)

	s, ok := c.Seat("b2")
	require.True(t, ok)
	assert.Equal(t, uint64(12), s.ID)
}

func TestResolve_GridKeepsAislesAndMergesPairs(t *testing.T) {
	c, err := Resolve(testRoom())
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, c.Rows)

	rowA := c.Grid[0]
	labels := make([]string, 0, len(rowA))
	for _, cell := range rowA {
		if cell.Unit == nil {
			labels = append(labels, "_")
			continue
		}
		labels = append(labels, cell.Unit.Label)
	}
	assert.Equal(t, []string{"A1", "A2", "_", "A4", "A5-6", "A7"}, labels)

	// Row B is padded to the room width.
	assert.Len(t, c.Grid[1], 7)
}

func TestCatalog_UnitsGroupsCoupleHalves(t *testing.T) {
	c, err := Resolve(testRoom())
	require.NoError(t, err)

	units := c.Units([]uint64{6, 1, 5, 999, 1})
	require.Len(t, units, 2)
	assert.Equal(t, "A5-6", units[0].Label)
	assert.Equal(t, "A1", units[1].Label)
}

func TestCatalog_NumbersReportsUnknownIDs(t *testing.T) {
	c, err := Resolve(testRoom())
	require.NoError(t, err)

	nums, unknown := c.Numbers([]uint64{1, 42, 12})
	assert.Equal(t, []string{"A1", "B2"}, nums)
	assert.Equal(t, []uint64{42}, unknown)
}

func TestRowLabels(t *testing.T) {
	assert.Equal(t, "A", RowLabel(0))
	assert.Equal(t, "Z", RowLabel(25))
	assert.Equal(t, "AA", RowLabel(26))

	i, ok := RowIndex("aa")
	assert.True(t, ok)
	assert.Equal(t, 26, i)

	_, ok = RowIndex("A1")
	assert.False(t, ok)
}
