package repository

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
)

// ShowSeatRepo tracks the per-showtime status of every seat.  Each
// status change bumps the row version; the versions order the live
// events published for a seat.
type ShowSeatRepo struct {
	db *sql.DB
}

func NewShowSeatRepo(db *sql.DB) *ShowSeatRepo { return &ShowSeatRepo{db: db} }

// Ensure creates the FREE rows of a showtime from its room's seats.
// It runs outside the caller's transaction: INSERT IGNORE takes shared
// locks on existing rows, which would deadlock concurrent holds.
func (r *ShowSeatRepo) Ensure(ctx context.Context, showtimeID uint64) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM show_seats WHERE showtime_id = ? LIMIT 1`, showtimeID).Scan(&one)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	const q = `INSERT IGNORE INTO show_seats (showtime_id, seat_id, status, version)
	           SELECT st.id, s.id, 'FREE', 0
	           FROM showtimes st
	           JOIN seats s ON s.room_id = st.room_id
	           WHERE st.id = ?`
	_, err = r.db.ExecContext(ctx, q, showtimeID)
	return err
}

// LockTx takes the row lock of one show seat and returns its status.
// Holding it first serializes every transaction touching the seat.
func (r *ShowSeatRepo) LockTx(ctx context.Context, tx *sql.Tx, showtimeID, seatID uint64) (model.SeatStatus, error) {
	var st model.SeatStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM show_seats WHERE showtime_id = ? AND seat_id = ? FOR UPDATE`, showtimeID, seatID).Scan(&st)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownSeat
	}
	return st, err
}

// BookedSeats lists the BOOKED seats of a showtime.
func (r *ShowSeatRepo) BookedSeats(ctx context.Context, showtimeID uint64) ([]model.BookedSeat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_id FROM show_seats WHERE showtime_id = ? AND status = 'BOOKED' ORDER BY seat_id`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookedSeat{}
	for rows.Next() {
		var b model.BookedSeat
		if err := rows.Scan(&b.SeatID); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// HoldTx moves one seat from FREE to HELD.  The conditional update is
// the mutual exclusion point: of two concurrent holds on a FREE seat
// exactly one affects a row.  It returns the new version, or
// ErrSeatUnavailable when the seat was not FREE.
func (r *ShowSeatRepo) HoldTx(ctx context.Context, tx *sql.Tx, showtimeID, seatID uint64) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = 'HELD', version = version + 1
		 WHERE showtime_id = ? AND seat_id = ? AND status = 'FREE'`, showtimeID, seatID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrSeatUnavailable
	}
	var version uint64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM show_seats WHERE showtime_id = ? AND seat_id = ?`, showtimeID, seatID).Scan(&version)
	return version, err
}

// TransitionTx moves the given seats from one status to another and
// returns the new version of each seat that changed.  Seats not in the
// from status are skipped.
func (r *ShowSeatRepo) TransitionTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64, from, to model.SeatStatus) (map[uint64]uint64, error) {
	if len(seatIDs) == 0 {
		return map[uint64]uint64{}, nil
	}
	in := placeholders(len(seatIDs))
	// lock first so the versions read back are the ones we wrote
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_id FROM show_seats WHERE showtime_id = ? AND status = ? AND seat_id IN (`+in+`) FOR UPDATE`,
		idArgs([]interface{}{showtimeID, from}, seatIDs)...)
	if err != nil {
		return nil, err
	}
	var changed []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		changed = append(changed, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return map[uint64]uint64{}, nil
	}

	in = placeholders(len(changed))
	if _, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, version = version + 1
		 WHERE showtime_id = ? AND seat_id IN (`+in+`)`,
		idArgs([]interface{}{to, showtimeID}, changed)...); err != nil {
		return nil, err
	}
	return r.versionsTx(ctx, tx, showtimeID, changed)
}

func (r *ShowSeatRepo) versionsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64) (map[uint64]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_id, version FROM show_seats WHERE showtime_id = ? AND seat_id IN (`+placeholders(len(seatIDs))+`)`,
		idArgs([]interface{}{showtimeID}, seatIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]uint64, len(seatIDs))
	for rows.Next() {
		var id, v uint64
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, rows.Err()
}
