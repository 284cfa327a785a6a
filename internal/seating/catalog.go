// Package seating resolves a room's seat layout into holdable units and
// prices a selection of those units.  Everything here is pure: the same
// functions back the operator terminal and the server's booking totals.
package seating

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
)

// ErrRoomUnavailable is returned when a room is missing or has no seats.
// The seat map must not be shown as fully available in that case.
var ErrRoomUnavailable = errors.New("room seat layout unavailable")

// Unit is the smallest group of seats that is held, released, booked and
// priced together: a single seat, or both halves of a couple pair.
type Unit struct {
	Label string
	Seats []model.Seat
}

// Couple reports whether the unit is a couple pair.
func (u Unit) Couple() bool { return len(u.Seats) == 2 }

// SeatIDs returns the ids of the unit's seats, left to right.
func (u Unit) SeatIDs() []uint64 {
	ids := make([]uint64, len(u.Seats))
	for i, s := range u.Seats {
		ids[i] = s.ID
	}
	return ids
}

// Cell is one position of the rendered grid.  Unit is nil for aisles.
// A couple pair occupies one cell with Span 2.
type Cell struct {
	Row  string
	Col  int
	Span int
	Unit *Unit
}

// Catalog is the resolved seat layout of one room.
type Catalog struct {
	RoomID uint64
	Rows   []string
	Grid   [][]Cell

	byNumber map[string]model.Seat
	byID     map[uint64]model.Seat
	units    map[uint64]*Unit
	labels   map[string]*Unit
}

// Resolve builds a Catalog from a room.  Couple pairs are found by
// scanning each row left to right for two COUPLE seats in adjacent
// columns; an unpaired COUPLE seat stays a single-seat unit.
func Resolve(room *model.Room) (*Catalog, error) {
	if room == nil || len(room.Seats) == 0 {
		return nil, ErrRoomUnavailable
	}

	c := &Catalog{
		RoomID:   room.ID,
		byNumber: make(map[string]model.Seat, len(room.Seats)),
		byID:     make(map[uint64]model.Seat, len(room.Seats)),
		units:    make(map[uint64]*Unit, len(room.Seats)),
		labels:   make(map[string]*Unit, len(room.Seats)),
	}

	rows := make(map[string][]model.Seat)
	// labels and grid cells must each name exactly one seat
	numbers := make(map[string]uint64, len(room.Seats))
	cells := make(map[string]uint64, len(room.Seats))
	for _, s := range room.Seats {
		s.Row = strings.ToUpper(strings.TrimSpace(s.Row))
		s.SeatNumber = strings.ToUpper(strings.TrimSpace(s.SeatNumber))
		if s.SeatNumber == "" {
			s.SeatNumber = fmt.Sprintf("%s%d", s.Row, s.Col)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, errors.Newf("room %d: duplicate seat id %d", room.ID, s.ID)
		}
		if other, dup := numbers[s.SeatNumber]; dup {
			return nil, errors.Newf("room %d: seats %d and %d share number %s", room.ID, other, s.ID, s.SeatNumber)
		}
		cell := fmt.Sprintf("%s/%d", s.Row, s.Col)
		if other, dup := cells[cell]; dup {
			return nil, errors.Newf("room %d: seats %d and %d share row %s col %d", room.ID, other, s.ID, s.Row, s.Col)
		}
		numbers[s.SeatNumber], cells[cell] = s.ID, s.ID
		rows[s.Row] = append(rows[s.Row], s)
		c.byID[s.ID] = s
	}

	for row := range rows {
		c.Rows = append(c.Rows, row)
	}
	sort.Slice(c.Rows, func(i, j int) bool { return rowLess(c.Rows[i], c.Rows[j]) })

	maxCol := room.Cols
	for _, row := range c.Rows {
		seats := rows[row]
		sort.Slice(seats, func(i, j int) bool { return seats[i].Col < seats[j].Col })
		if last := seats[len(seats)-1].Col; last > maxCol {
			maxCol = last
		}
		for i := 0; i < len(seats); {
			left := seats[i]
			if i+1 < len(seats) && pairable(left, seats[i+1]) {
				right := seats[i+1]
				left.CoupleWith, right.CoupleWith = right.ID, left.ID
				c.add(&Unit{
					Label: fmt.Sprintf("%s%d-%d", row, left.Col, right.Col),
					Seats: []model.Seat{left, right},
				})
				i += 2
				continue
			}
			c.add(&Unit{Label: left.SeatNumber, Seats: []model.Seat{left}})
			i++
		}
	}

	c.Grid = make([][]Cell, 0, len(c.Rows))
	for _, row := range c.Rows {
		c.Grid = append(c.Grid, c.buildRow(row, rows[row], maxCol))
	}
	return c, nil
}

func pairable(a, b model.Seat) bool {
	return a.SeatType == model.SeatCouple && b.SeatType == model.SeatCouple && b.Col == a.Col+1
}

func (c *Catalog) add(u *Unit) {
	for _, s := range u.Seats {
		c.byID[s.ID] = s
		c.byNumber[strings.ToUpper(s.SeatNumber)] = s
		c.units[s.ID] = u
		c.labels[strings.ToUpper(s.SeatNumber)] = u
	}
	c.labels[strings.ToUpper(u.Label)] = u
}

func (c *Catalog) buildRow(row string, seats []model.Seat, maxCol int) []Cell {
	byCol := make(map[int]*Unit, len(seats))
	for _, s := range seats {
		byCol[s.Col] = c.units[s.ID]
	}
	cells := make([]Cell, 0, maxCol)
	for col := 1; col <= maxCol; col++ {
		u, ok := byCol[col]
		if !ok {
			cells = append(cells, Cell{Row: row, Col: col, Span: 1})
			continue
		}
		cells = append(cells, Cell{Row: row, Col: col, Span: len(u.Seats), Unit: u})
		col += len(u.Seats) - 1
	}
	return cells
}

// Seat looks up a seat by its number, case-insensitively.
func (c *Catalog) Seat(number string) (model.Seat, bool) {
	s, ok := c.byNumber[strings.ToUpper(strings.TrimSpace(number))]
	return s, ok
}

// SeatByID looks up a seat by id.
func (c *Catalog) SeatByID(id uint64) (model.Seat, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// UnitOf returns the unit containing the seat.
func (c *Catalog) UnitOf(seatID uint64) (Unit, bool) {
	u, ok := c.units[seatID]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// UnitByLabel resolves a seat number ("A5") or merged couple label
// ("A5-6") to its unit.
func (c *Catalog) UnitByLabel(label string) (Unit, bool) {
	u, ok := c.labels[strings.ToUpper(strings.TrimSpace(label))]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// Units groups seat ids into units.  A couple half pulls in its
// partner; duplicates and unknown ids are dropped.  Order follows the
// first appearance of each unit in ids.
func (c *Catalog) Units(seatIDs []uint64) []Unit {
	seen := make(map[*Unit]bool, len(seatIDs))
	out := make([]Unit, 0, len(seatIDs))
	for _, id := range seatIDs {
		u, ok := c.units[id]
		if !ok || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, *u)
	}
	return out
}

// Numbers maps seat ids to seat numbers.  Ids missing from the catalog
// are returned separately and must render as unavailable.
func (c *Catalog) Numbers(ids []uint64) (numbers []string, unknown []uint64) {
	for _, id := range ids {
		if s, ok := c.byID[id]; ok {
			numbers = append(numbers, s.SeatNumber)
			continue
		}
		unknown = append(unknown, id)
	}
	return numbers, unknown
}

// Len returns the number of seats in the room.
func (c *Catalog) Len() int { return len(c.byID) }
