package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-pos/internal/model"
)

// SeatHoldRepo provides access to the seat_holds table.  All times are
// UTC; expiry is compared against the database clock.
type SeatHoldRepo struct {
	db *sql.DB
}

func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

// NewHold builds a hold record with a fresh token.
func NewHold(operatorID, showtimeID, seatID uint64, expiresAt time.Time) model.SeatHold {
	return model.SeatHold{
		OperatorID: operatorID,
		ShowtimeID: showtimeID,
		SeatID:     seatID,
		HoldToken:  uuid.NewString(),
		ExpiresAt:  expiresAt.UTC(),
	}
}

// CreateTx inserts a hold and fills in its id.
func (r *SeatHoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.SeatHold) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO seat_holds (operator_id, showtime_id, seat_id, hold_token, expires_at) VALUES (?, ?, ?, ?, ?)`,
		h.OperatorID, h.ShowtimeID, h.SeatID, h.HoldToken, h.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// ExpireTx deletes the expired holds of a showtime, or of one seat when
// seatID is non-zero, and returns the seat ids that lost their hold.
// The caller flips those seats back to FREE.
func (r *SeatHoldRepo) ExpireTx(ctx context.Context, tx *sql.Tx, showtimeID, seatID uint64) ([]uint64, error) {
	where := `showtime_id = ? AND expires_at <= UTC_TIMESTAMP()`
	args := []interface{}{showtimeID}
	if seatID != 0 {
		where += ` AND seat_id = ?`
		args = append(args, seatID)
	}
	rows, err := tx.QueryContext(ctx, `SELECT seat_id FROM seat_holds WHERE `+where+` FOR UPDATE`, args...)
	if err != nil {
		return nil, err
	}
	var expired []uint64
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			rows.Close()
			return nil, err
		}
		expired = append(expired, sid)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE showtime_id = ? AND seat_id IN (`+placeholders(len(expired))+`)`,
		idArgs([]interface{}{showtimeID}, expired)...); err != nil {
		return nil, err
	}
	return expired, nil
}

// ShowtimesWithExpired lists showtimes that have at least one expired
// hold.  The expiry sweeper visits them one transaction at a time.
func (r *SeatHoldRepo) ShowtimesWithExpired(ctx context.Context, limit int) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT showtime_id FROM seat_holds WHERE expires_at <= UTC_TIMESTAMP() LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteOwnTx removes the operator's hold on a seat and reports whether
// there was one.  Holds of other operators are never touched.
func (r *SeatHoldRepo) DeleteOwnTx(ctx context.Context, tx *sql.Tx, operatorID, showtimeID, seatID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE operator_id = ? AND showtime_id = ? AND seat_id = ?`,
		operatorID, showtimeID, seatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ActiveForSeatsTx locks and returns the operator's unexpired holds
// among seatIDs.
func (r *SeatHoldRepo) ActiveForSeatsTx(ctx context.Context, tx *sql.Tx, operatorID, showtimeID uint64, seatIDs []uint64) ([]model.SeatHold, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT id, operator_id, showtime_id, seat_id, hold_token, expires_at, created_at
	      FROM seat_holds
	      WHERE operator_id = ? AND showtime_id = ? AND expires_at > UTC_TIMESTAMP()
	        AND seat_id IN (` + placeholders(len(seatIDs)) + `)
	      FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, idArgs([]interface{}{operatorID, showtimeID}, seatIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var holds []model.SeatHold
	for rows.Next() {
		var h model.SeatHold
		if err := rows.Scan(&h.ID, &h.OperatorID, &h.ShowtimeID, &h.SeatID, &h.HoldToken, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

// DeleteByIDsTx removes holds by primary key.
func (r *SeatHoldRepo) DeleteByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE id IN (`+placeholders(len(ids))+`)`, idArgs(nil, ids)...)
	return err
}

// ListActive returns the unexpired holds of a showtime.
func (r *SeatHoldRepo) ListActive(ctx context.Context, showtimeID uint64) ([]model.HeldSeat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_id, expires_at, operator_id FROM seat_holds
		 WHERE showtime_id = ? AND expires_at > UTC_TIMESTAMP() ORDER BY seat_id`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.HeldSeat{}
	for rows.Next() {
		var h model.HeldSeat
		if err := rows.Scan(&h.SeatID, &h.ExpiresAt, &h.HeldBy); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
