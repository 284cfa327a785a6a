package repository

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
)

// BookingRepo persists bookings with their seats and concession lines.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingSeat is one priced seat of a booking.
type BookingSeat struct {
	SeatID uint64
	Price  int64
}

// CreateTx inserts the booking row and fills in ID and CreatedAt.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (operator_id, showtime_id, booking_type, payment_method, status, total_price)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.OperatorID, b.ShowtimeID, b.Type, b.PaymentMethod, b.Status, b.TotalPrice)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return tx.QueryRowContext(ctx, `SELECT created_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.CreatedAt)
}

// CreateSeatsTx inserts the booked seats in one statement.  The unique
// (showtime_id, seat_id) key makes a double sale fail here even if the
// status flip were bypassed.
func (r *BookingRepo) CreateSeatsTx(ctx context.Context, tx *sql.Tx, bookingID, showtimeID uint64, seats []BookingSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, showtime_id, seat_id, price) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, bookingID, showtimeID, s.SeatID, s.Price)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// CreateFoodDrinksTx inserts the concession lines with the unit price
// charged.  Zero quantities are skipped.
func (r *BookingRepo) CreateFoodDrinksTx(ctx context.Context, tx *sql.Tx, bookingID uint64, items []model.FoodDrinkLineItem, menu map[uint64]model.FoodDrink) error {
	query := `INSERT INTO booking_food_drinks (booking_id, food_drink_id, quantity, unit_price) VALUES `
	var args []interface{}
	for _, it := range items {
		if it.Quantity == 0 {
			continue
		}
		if len(args) > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, bookingID, it.FoodDrinkID, it.Quantity, menu[it.FoodDrinkID].Price)
	}
	if len(args) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID loads a booking with its seat ids and concession lines.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	var (
		b   model.Booking
		ref sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, operator_id, showtime_id, booking_type, payment_method, status, total_price, payment_ref, created_at
		 FROM bookings WHERE id = ?`, id).
		Scan(&b.ID, &b.OperatorID, &b.ShowtimeID, &b.Type, &b.PaymentMethod, &b.Status, &b.TotalPrice, &ref, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "booking %d", id)
		}
		return nil, errors.Wrapf(err, "load booking %d", id)
	}
	if ref.Valid {
		b.PaymentRef = &ref.String
	}

	rows, err := r.db.QueryContext(ctx, `SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY seat_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		b.SeatIDs = append(b.SeatIDs, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fdRows, err := r.db.QueryContext(ctx,
		`SELECT food_drink_id, quantity FROM booking_food_drinks WHERE booking_id = ? ORDER BY food_drink_id`, id)
	if err != nil {
		return nil, err
	}
	defer fdRows.Close()
	for fdRows.Next() {
		var it model.FoodDrinkLineItem
		if err := fdRows.Scan(&it.FoodDrinkID, &it.Quantity); err != nil {
			return nil, err
		}
		b.FoodDrinks = append(b.FoodDrinks, it)
	}
	return &b, fdRows.Err()
}

// SetPaymentRef records the gateway payment id of a prepaid booking.
// It fails with ErrConflict when the booking already has one.
func (r *BookingRepo) SetPaymentRef(ctx context.Context, id uint64, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_ref = ? WHERE id = ? AND payment_ref IS NULL`, ref, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrConflict, "booking %d already has a payment", id)
	}
	return nil
}
