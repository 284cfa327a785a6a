package pos

import (
	"time"

	"github.com/iliyamo/cinema-pos/internal/model"
)

// Selection is the ordered set of seats the operator holds and intends
// to book, with the expiry of each acknowledged hold.  It is not safe
// for concurrent use; Session guards it.
type Selection struct {
	order   []uint64
	expires map[uint64]time.Time
}

// NewSelection returns an empty Selection.
func NewSelection() *Selection {
	return &Selection{expires: make(map[uint64]time.Time)}
}

// Add records an acknowledged hold.
func (s *Selection) Add(h model.HeldSeat) {
	if _, ok := s.expires[h.SeatID]; !ok {
		s.order = append(s.order, h.SeatID)
	}
	s.expires[h.SeatID] = h.ExpiresAt
}

// Remove drops a seat and reports whether it was selected.
func (s *Selection) Remove(id uint64) bool {
	if _, ok := s.expires[id]; !ok {
		return false
	}
	delete(s.expires, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Selection) Has(id uint64) bool {
	_, ok := s.expires[id]
	return ok
}

// HasAny reports whether any of ids is selected.
func (s *Selection) HasAny(ids []uint64) bool {
	for _, id := range ids {
		if s.Has(id) {
			return true
		}
	}
	return false
}

// IDs returns the selected seat ids in selection order.
func (s *Selection) IDs() []uint64 {
	out := make([]uint64, len(s.order))
	copy(out, s.order)
	return out
}

// ExpiresAt returns when the hold on id expires.
func (s *Selection) ExpiresAt(id uint64) (time.Time, bool) {
	t, ok := s.expires[id]
	return t, ok
}

func (s *Selection) Len() int { return len(s.order) }

func (s *Selection) Clear() {
	s.order = nil
	s.expires = make(map[uint64]time.Time)
}
