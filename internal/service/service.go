// Package service implements the seat-state backing store: holds,
// releases, bookings and prepaid checkout on top of the MySQL
// repositories, publishing live seat updates after every commit.
package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/payment"
	"github.com/iliyamo/cinema-pos/internal/queue"
)

// SeatPublisher fans seat updates out on the showtime's live channel.
type SeatPublisher interface {
	PublishAll(ctx context.Context, events []model.SeatUpdateEvent)
}

// BookingEvents receives a message per committed booking.
type BookingEvents interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// PaymentInitiator starts prepaid payments at the gateway.
type PaymentInitiator interface {
	InitPayment(ctx context.Context, amount int64, orderID, description string) (*payment.InitResponse, error)
}

type nopPublisher struct{}

func (nopPublisher) PublishAll(context.Context, []model.SeatUpdateEvent) {}

// publishCommitted fans out the updates of a committed transaction.  The
// rows are written, so a caller that gave up meanwhile must not cancel
// the fan-out.
func publishCommitted(ctx context.Context, pub SeatPublisher, events []model.SeatUpdateEvent) {
	if len(events) == 0 {
		return
	}
	pub.PublishAll(context.WithoutCancel(ctx), events)
}

// withTx runs fn in a transaction, committing when it returns nil.  A
// transaction chosen as deadlock victim is retried; fn must therefore
// reset anything it accumulates.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	start := time.Now()
	defer func() { observability.DBTxDuration.Observe(time.Since(start).Seconds()) }()

	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if err = runTx(ctx, db, fn); !isDeadlock(err) {
			return err
		}
	}
	return err
}

const maxTxAttempts = 3

func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// isDeadlock reports MySQL error 1213 (ER_LOCK_DEADLOCK).
func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1213
}

// seatEvents turns the versions returned by a transition into events,
// ordered by seat id.
func seatEvents(showtimeID uint64, versions map[uint64]uint64, status model.SeatEventStatus, actorID uint64, expiresAt *time.Time) []model.SeatUpdateEvent {
	out := make([]model.SeatUpdateEvent, 0, len(versions))
	for seatID, v := range versions {
		out = append(out, model.SeatUpdateEvent{
			ShowtimeID: showtimeID,
			SeatID:     seatID,
			Status:     status,
			ExpiresAt:  expiresAt,
			Version:    v,
			ActorID:    actorID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out
}

// uniqueIDs drops zero and repeated ids, keeping first-seen order.
func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
