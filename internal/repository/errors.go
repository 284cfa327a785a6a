// Package repository is the MySQL data access layer.  Methods ending in
// Tx run inside a caller-owned transaction; the caller commits or rolls
// back.  Sentinel errors let handlers pick the HTTP status.
package repository

import "github.com/cockroachdb/errors"

var (
	// ErrNotFound is returned when a lookup yields no rows.
	ErrNotFound = errors.New("not found")
	// ErrSeatUnavailable is returned when a hold targets a seat that is
	// not FREE for the showtime.  Handlers answer 409 seat_unavailable.
	ErrSeatUnavailable = errors.New("seat unavailable")
	// ErrStaleHold is returned when a booking names a seat the caller no
	// longer holds.  Handlers answer 409 stale_hold.
	ErrStaleHold = errors.New("seat hold expired or missing")
	// ErrUnknownSeat is returned for seat ids outside the showtime's room.
	ErrUnknownSeat = errors.New("seat not in showtime room")
	// ErrEmailExists is returned on duplicate operator registration.
	ErrEmailExists = errors.New("email already exists")
	// ErrConflict signals a state conflict such as checking out a booking
	// that is not prepaid or already has a payment.
	ErrConflict = errors.New("conflict")
)

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func idArgs(prefix []interface{}, ids []uint64) []interface{} {
	args := make([]interface{}, 0, len(prefix)+len(ids))
	args = append(args, prefix...)
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}
