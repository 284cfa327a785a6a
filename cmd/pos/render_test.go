package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/pos"
	"github.com/iliyamo/cinema-pos/internal/seating"
)

func testCatalog(t *testing.T) *seating.Catalog {
	cat, err := seating.Resolve(&model.Room{ID: 1, Rows: 1, Cols: 5, Seats: []model.Seat{
		{ID: 1, Row: "A", Col: 1, SeatType: model.SeatNormal},
		{ID: 2, Row: "A", Col: 2, SeatType: model.SeatNormal},
		{ID: 4, Row: "A", Col: 4, SeatType: model.SeatCouple},
		{ID: 5, Row: "A", Col: 5, SeatType: model.SeatCouple},
	}})
	require.NoError(t, err)
	return cat
}

func TestRenderMap_MarksSeatStates(t *testing.T) {
	cat := testCatalog(t)
	v := pos.Aggregate(cat, []model.BookedSeat{{SeatID: 1}}, nil, []uint64{4, 5}, nil)

	var buf bytes.Buffer
	renderMap(&buf, nil, cat, v)
	out := buf.String()

	assert.Contains(t, out, "[#A1]")
	assert.Contains(t, out, "[ A2]")
	assert.Contains(t, out, "[*A4-5 <3]")
	assert.Contains(t, out, "SCREEN")
}

func TestRenderMap_NoCatalog(t *testing.T) {
	var buf bytes.Buffer
	renderMap(&buf, nil, nil, pos.View{})
	assert.Equal(t, "seat map unavailable\n", buf.String())
}

func TestRenderQuote(t *testing.T) {
	var buf bytes.Buffer
	renderQuote(&buf, seating.Quote{
		Seats:      []seating.Line{{Label: "A1", Quantity: 1, UnitPrice: 100, Amount: 100}},
		FoodDrinks: []seating.Line{{Label: "Popcorn", Quantity: 2, UnitPrice: 50, Amount: 100}},
		Total:      200,
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[2], "200"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "seat is held or booked by someone else", describe(errors.Wrap(pos.ErrSeatConflict, "A1")))
	assert.Equal(t, "boom", describe(errors.New("boom")))
}

func TestExec_UnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	term := &terminal{session: pos.NewSession(nil, nil), out: &buf}

	assert.False(t, term.exec(context.Background(), []string{"dance"}))
	assert.Contains(t, buf.String(), "unknown command")
	assert.True(t, term.exec(context.Background(), []string{"quit"}))
}
