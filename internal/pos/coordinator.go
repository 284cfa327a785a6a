package pos

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/seating"
)

// releaseFanout bounds concurrent release calls during cleanup.
const releaseFanout = 4

// Coordinator issues hold and release requests for seat units.  It holds
// no state of its own; the Session decides what enters the Selection.
type Coordinator struct {
	store  Store
	log    observability.Logger
	tracer trace.Tracer
}

// NewCoordinator returns a Coordinator over store.
func NewCoordinator(store Store, log observability.Logger) *Coordinator {
	if log == nil {
		log = observability.Discard()
	}
	return &Coordinator{store: store, log: log, tracer: otel.Tracer("cinema-pos/pos")}
}

// RequestHold holds every seat of unit.  Couple halves are requested
// together; if either fails, the half that succeeded is released before
// the error is returned, so the caller never sees a half-held pair.
func (c *Coordinator) RequestHold(ctx context.Context, showtimeID uint64, unit seating.Unit) ([]model.HeldSeat, error) {
	ctx, span := c.tracer.Start(ctx, "pos.RequestHold", trace.WithAttributes(
		attribute.Int64("showtime.id", int64(showtimeID)),
		attribute.String("seat.label", unit.Label),
	))
	defer span.End()

	held := make([]model.HeldSeat, len(unit.Seats))
	ok := make([]bool, len(unit.Seats))

	var g errgroup.Group
	for i, s := range unit.Seats {
		g.Go(func() error {
			h, err := c.store.HoldSeat(ctx, showtimeID, s.ID)
			if err != nil {
				return errors.Wrapf(err, "hold seat %s", s.SeatNumber)
			}
			if h.SeatID == 0 {
				h.SeatID = s.ID
			}
			held[i], ok[i] = h, true
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		return held, nil
	}
	span.RecordError(err)

	var acquired []uint64
	for i, s := range unit.Seats {
		if ok[i] {
			acquired = append(acquired, s.ID)
		}
	}
	if len(acquired) > 0 {
		c.log.WithField("showtime_id", showtimeID).WithField("unit", unit.Label).
			Warnf("rolling back %d of %d seats after failed hold", len(acquired), len(unit.Seats))
		c.ReleaseAll(context.WithoutCancel(ctx), showtimeID, acquired)
	}
	return nil, err
}

// RequestRelease releases every seat of unit.  The store treats an
// already released or expired hold as success.
func (c *Coordinator) RequestRelease(ctx context.Context, showtimeID uint64, unit seating.Unit) error {
	ctx, span := c.tracer.Start(ctx, "pos.RequestRelease", trace.WithAttributes(
		attribute.Int64("showtime.id", int64(showtimeID)),
		attribute.String("seat.label", unit.Label),
	))
	defer span.End()

	var g errgroup.Group
	for _, s := range unit.Seats {
		g.Go(func() error {
			if err := c.store.ReleaseSeat(ctx, showtimeID, s.ID); err != nil {
				return errors.Wrapf(err, "release seat %s", s.SeatNumber)
			}
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// ReleaseAll issues one release per seat id and returns how many
// failed.  Failures are only logged: the server expires holds anyway.
func (c *Coordinator) ReleaseAll(ctx context.Context, showtimeID uint64, seatIDs []uint64) int {
	if len(seatIDs) == 0 {
		return 0
	}
	failed := make([]bool, len(seatIDs))

	var g errgroup.Group
	g.SetLimit(releaseFanout)
	for i, id := range seatIDs {
		g.Go(func() error {
			if err := c.store.ReleaseSeat(ctx, showtimeID, id); err != nil {
				failed[i] = true
				c.log.WithError(err).WithField("showtime_id", showtimeID).WithField("seat_id", id).
					Warn("release failed, hold will expire server-side")
			}
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return n
}
