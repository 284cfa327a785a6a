package pos

import (
	"sort"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/seating"
)

// SeatState is how a seat renders on the operator's map.
type SeatState int

const (
	StateAvailable SeatState = iota
	StateSelected
	StatePending
	StateHeldByOther
	StateBooked
	StateUnavailable
)

func (s SeatState) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateSelected:
		return "selected"
	case StatePending:
		return "pending"
	case StateHeldByOther:
		return "held"
	case StateBooked:
		return "booked"
	default:
		return "unavailable"
	}
}

// View is the display state of one showtime.  Booked, HeldByOthers,
// Selected and Pending are pairwise disjoint sets of seat numbers.
type View struct {
	ShowtimeID   uint64
	Booked       []string
	HeldByOthers []string
	Selected     []string
	Pending      []string
	// Unknown lists seat ids reported by the store that are missing from
	// the room's catalog.
	Unknown    []uint64
	Finalizing bool
	// Stale is set while the booked/held lists could not be refreshed.
	Stale bool

	catalog *seating.Catalog
	states  map[string]SeatState
}

// Aggregate combines the store's booked and held lists with the local
// selection and in-flight holds.  Precedence is booked, selected,
// pending, held: a seat this operator holds is never shown as held by
// someone else.
func Aggregate(cat *seating.Catalog, booked []model.BookedSeat, held []model.HeldSeat, selected, pending []uint64) View {
	v := View{catalog: cat, states: make(map[string]SeatState)}
	if cat == nil {
		return v
	}

	mark := func(id uint64, st SeatState) {
		s, ok := cat.SeatByID(id)
		if !ok {
			v.Unknown = append(v.Unknown, id)
			return
		}
		if _, taken := v.states[s.SeatNumber]; taken {
			return
		}
		v.states[s.SeatNumber] = st
	}

	for _, b := range booked {
		mark(b.SeatID, StateBooked)
	}
	for _, id := range selected {
		mark(id, StateSelected)
	}
	for _, id := range pending {
		mark(id, StatePending)
	}
	for _, h := range held {
		mark(h.SeatID, StateHeldByOther)
	}

	for number, st := range v.states {
		switch st {
		case StateBooked:
			v.Booked = append(v.Booked, number)
		case StateSelected:
			v.Selected = append(v.Selected, number)
		case StatePending:
			v.Pending = append(v.Pending, number)
		case StateHeldByOther:
			v.HeldByOthers = append(v.HeldByOthers, number)
		}
	}
	for _, set := range [][]string{v.Booked, v.Selected, v.Pending, v.HeldByOthers} {
		sortSeats(cat, set)
	}
	v.Unknown = dedup(v.Unknown)
	return v
}

// StateOf returns the display state of a seat number.  Numbers missing
// from the catalog are unavailable.
func (v View) StateOf(number string) SeatState {
	if v.catalog == nil {
		return StateUnavailable
	}
	s, ok := v.catalog.Seat(number)
	if !ok {
		return StateUnavailable
	}
	if st, ok := v.states[s.SeatNumber]; ok {
		return st
	}
	return StateAvailable
}

// UnitState folds the states of a unit's seats.  A couple pair is
// selected only when both halves are.
func (v View) UnitState(u seating.Unit) SeatState {
	if len(u.Seats) == 0 {
		return StateUnavailable
	}
	selected := 0
	worst := StateAvailable
	for _, s := range u.Seats {
		st := v.StateOf(s.SeatNumber)
		switch st {
		case StateSelected:
			selected++
		case StateBooked, StateHeldByOther, StatePending, StateUnavailable:
			if st > worst {
				worst = st
			}
		}
	}
	if worst != StateAvailable {
		return worst
	}
	if selected == len(u.Seats) {
		return StateSelected
	}
	if selected > 0 {
		return StatePending
	}
	return StateAvailable
}

func sortSeats(cat *seating.Catalog, numbers []string) {
	sort.Slice(numbers, func(i, j int) bool {
		a, _ := cat.Seat(numbers[i])
		b, _ := cat.Seat(numbers[j])
		ai, _ := seating.RowIndex(a.Row)
		bi, _ := seating.RowIndex(b.Row)
		if ai != bi {
			return ai < bi
		}
		return a.Col < b.Col
	})
}

func dedup(ids []uint64) []uint64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint64]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
