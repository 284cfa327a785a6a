package repository

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
)

// RoomRepo reads rooms and their seat layout.  Seats are seeded by SQL;
// this repository never writes them.
type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// GetByID returns a room with every seat and its type surcharge,
// ordered by row then column.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	var room model.Room
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, row_count, col_count FROM rooms WHERE id = ?`, id).
		Scan(&room.ID, &room.Name, &room.Rows, &room.Cols)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "room %d", id)
		}
		return nil, errors.Wrapf(err, "load room %d", id)
	}

	const q = `SELECT s.id, s.room_id, s.seat_number, s.row_label, s.col_no, s.seat_type, t.extra_price
	           FROM seats s
	           JOIN seat_types t ON t.code = s.seat_type
	           WHERE s.room_id = ?
	           ORDER BY LENGTH(s.row_label), s.row_label, s.col_no`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, errors.Wrapf(err, "load seats of room %d", id)
	}
	defer rows.Close()
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.RoomID, &s.SeatNumber, &s.Row, &s.Col, &s.SeatType, &s.ExtraPrice); err != nil {
			return nil, err
		}
		room.Seats = append(room.Seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &room, nil
}

// SeatsByIDsTx returns the requested seats of the showtime's room with
// their surcharge.  Ids outside the room are simply absent.
func (r *RoomRepo) SeatsByIDsTx(ctx context.Context, tx *sql.Tx, roomID uint64, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT s.id, s.room_id, s.seat_number, s.row_label, s.col_no, s.seat_type, t.extra_price
	      FROM seats s
	      JOIN seat_types t ON t.code = s.seat_type
	      WHERE s.room_id = ? AND s.id IN (` + placeholders(len(seatIDs)) + `)`
	rows, err := tx.QueryContext(ctx, q, idArgs([]interface{}{roomID}, seatIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.RoomID, &s.SeatNumber, &s.Row, &s.Col, &s.SeatType, &s.ExtraPrice); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
