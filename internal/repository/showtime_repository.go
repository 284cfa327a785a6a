package repository

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
)

// ShowtimeRepo reads scheduled showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

// DB exposes the handle so services can open transactions.
func (r *ShowtimeRepo) DB() *sql.DB { return r.db }

func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	return scanShowtime(r.db.QueryRowContext(ctx,
		`SELECT id, room_id, movie_title, starts_at, base_price FROM showtimes WHERE id = ?`, id), id)
}

// GetByIDTx reads the showtime inside tx.
func (r *ShowtimeRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	return scanShowtime(tx.QueryRowContext(ctx,
		`SELECT id, room_id, movie_title, starts_at, base_price FROM showtimes WHERE id = ?`, id), id)
}

func scanShowtime(row *sql.Row, id uint64) (*model.Showtime, error) {
	var st model.Showtime
	if err := row.Scan(&st.ID, &st.RoomID, &st.MovieTitle, &st.StartsAt, &st.BasePrice); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "showtime %d", id)
		}
		return nil, errors.Wrapf(err, "load showtime %d", id)
	}
	return &st, nil
}
