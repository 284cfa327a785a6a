package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/repository"
)

// SeatService moves seats between FREE and HELD for operators.
type SeatService struct {
	db        *sql.DB
	showtimes *repository.ShowtimeRepo
	showSeats *repository.ShowSeatRepo
	holds     *repository.SeatHoldRepo
	pub       SeatPublisher
	holdTTL   time.Duration
	log       observability.Logger
	now       func() time.Time
}

type SeatDeps struct {
	DB        *sql.DB
	Showtimes *repository.ShowtimeRepo
	ShowSeats *repository.ShowSeatRepo
	Holds     *repository.SeatHoldRepo
	Publisher SeatPublisher
	HoldTTL   time.Duration
	Log       observability.Logger
}

func NewSeatService(d SeatDeps) *SeatService {
	if d.Publisher == nil {
		d.Publisher = nopPublisher{}
	}
	if d.Log == nil {
		d.Log = observability.Discard()
	}
	if d.HoldTTL <= 0 {
		d.HoldTTL = 5 * time.Minute
	}
	return &SeatService{
		db:        d.DB,
		showtimes: d.Showtimes,
		showSeats: d.ShowSeats,
		holds:     d.Holds,
		pub:       d.Publisher,
		holdTTL:   d.HoldTTL,
		log:       d.Log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HoldSeat holds a FREE seat for the operator until now + hold TTL.
// An expired hold on the seat is cleared first.  A seat held or booked
// by anyone, the operator included, fails with ErrSeatUnavailable.
func (s *SeatService) HoldSeat(ctx context.Context, operatorID, showtimeID, seatID uint64) (model.HeldSeat, error) {
	var (
		events []model.SeatUpdateEvent
		hold   model.SeatHold
	)
	if _, err := s.showtimes.GetByID(ctx, showtimeID); err != nil {
		return model.HeldSeat{}, err
	}
	if err := s.showSeats.Ensure(ctx, showtimeID); err != nil {
		return model.HeldSeat{}, err
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		events = events[:0]
		if _, err := s.showSeats.LockTx(ctx, tx, showtimeID, seatID); err != nil {
			return errors.Wrapf(err, "seat %d", seatID)
		}

		expired, err := s.holds.ExpireTx(ctx, tx, showtimeID, seatID)
		if err != nil {
			return err
		}
		if len(expired) > 0 {
			freed, err := s.showSeats.TransitionTx(ctx, tx, showtimeID, expired, model.StatusHeld, model.StatusFree)
			if err != nil {
				return err
			}
			events = append(events, seatEvents(showtimeID, freed, model.SeatEventReleased, 0, nil)...)
		}

		version, err := s.showSeats.HoldTx(ctx, tx, showtimeID, seatID)
		if err != nil {
			return err
		}
		hold = repository.NewHold(operatorID, showtimeID, seatID, s.now().Add(s.holdTTL))
		if err := s.holds.CreateTx(ctx, tx, &hold); err != nil {
			return err
		}
		exp := hold.ExpiresAt
		events = append(events, model.SeatUpdateEvent{
			ShowtimeID: showtimeID,
			SeatID:     seatID,
			Status:     model.SeatEventHeld,
			ExpiresAt:  &exp,
			Version:    version,
			ActorID:    operatorID,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSeatUnavailable) {
			observability.SeatHolds.WithLabelValues("conflict").Inc()
		} else {
			observability.SeatHolds.WithLabelValues("error").Inc()
		}
		return model.HeldSeat{}, err
	}
	observability.SeatHolds.WithLabelValues("held").Inc()
	publishCommitted(ctx, s.pub, events)
	return model.HeldSeat{SeatID: seatID, ExpiresAt: hold.ExpiresAt, HeldBy: operatorID}, nil
}

// ReleaseSeat drops the operator's hold on a seat.  Releasing a seat the
// operator does not hold is a no-op, so retries are safe.
func (s *SeatService) ReleaseSeat(ctx context.Context, operatorID, showtimeID, seatID uint64) error {
	var freed map[uint64]uint64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		freed = nil
		if _, err := s.showSeats.LockTx(ctx, tx, showtimeID, seatID); err != nil {
			if errors.Is(err, repository.ErrUnknownSeat) {
				return nil
			}
			return err
		}
		deleted, err := s.holds.DeleteOwnTx(ctx, tx, operatorID, showtimeID, seatID)
		if err != nil || !deleted {
			return err
		}
		freed, err = s.showSeats.TransitionTx(ctx, tx, showtimeID, []uint64{seatID}, model.StatusHeld, model.StatusFree)
		return err
	})
	if err != nil {
		observability.SeatReleases.WithLabelValues("error").Inc()
		return err
	}
	if len(freed) == 0 {
		observability.SeatReleases.WithLabelValues("noop").Inc()
		return nil
	}
	observability.SeatReleases.WithLabelValues("released").Inc()
	publishCommitted(ctx, s.pub, seatEvents(showtimeID, freed, model.SeatEventReleased, operatorID, nil))
	return nil
}

// BookedSeats lists the sold seats of a showtime.
func (s *SeatService) BookedSeats(ctx context.Context, showtimeID uint64) ([]model.BookedSeat, error) {
	if _, err := s.showtimes.GetByID(ctx, showtimeID); err != nil {
		return nil, err
	}
	return s.showSeats.BookedSeats(ctx, showtimeID)
}

// HeldSeats lists the unexpired holds of a showtime.
func (s *SeatService) HeldSeats(ctx context.Context, showtimeID uint64) ([]model.HeldSeat, error) {
	if _, err := s.showtimes.GetByID(ctx, showtimeID); err != nil {
		return nil, err
	}
	return s.holds.ListActive(ctx, showtimeID)
}
