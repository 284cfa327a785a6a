package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/repository"
)

// ExpirySweeper periodically frees seats whose hold has expired so that
// abandoned terminals do not block them forever.
type ExpirySweeper struct {
	db        *sql.DB
	holds     *repository.SeatHoldRepo
	showSeats *repository.ShowSeatRepo
	pub       SeatPublisher
	interval  time.Duration
	batch     int
	log       observability.Logger
}

func NewExpirySweeper(db *sql.DB, holds *repository.SeatHoldRepo, showSeats *repository.ShowSeatRepo, pub SeatPublisher, interval time.Duration, log observability.Logger) *ExpirySweeper {
	if pub == nil {
		pub = nopPublisher{}
	}
	if log == nil {
		log = observability.Discard()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ExpirySweeper{db: db, holds: holds, showSeats: showSeats, pub: pub, interval: interval, batch: 100, log: log}
}

// Run sweeps every interval until ctx is done.
func (w *ExpirySweeper) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		if n, err := w.Sweep(ctx); err != nil {
			w.log.WithError(err).Warn("hold sweep failed")
		} else if n > 0 {
			w.log.WithField("seats", n).Debug("expired holds released")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Sweep releases the expired holds of every affected showtime, one
// transaction per showtime, and returns the number of seats freed.
func (w *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	showtimes, err := w.holds.ShowtimesWithExpired(ctx, w.batch)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, id := range showtimes {
		var freed map[uint64]uint64
		err := withTx(ctx, w.db, func(tx *sql.Tx) error {
			expired, err := w.holds.ExpireTx(ctx, tx, id, 0)
			if err != nil {
				return err
			}
			freed, err = w.showSeats.TransitionTx(ctx, tx, id, expired, model.StatusHeld, model.StatusFree)
			return err
		})
		if err != nil {
			return total, err
		}
		total += len(freed)
		observability.ExpiredHolds.Add(float64(len(freed)))
		publishCommitted(ctx, w.pub, seatEvents(id, freed, model.SeatEventReleased, 0, nil))
	}
	return total, nil
}
