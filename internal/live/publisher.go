package live

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
)

// Publisher fans seat updates out to every terminal watching the
// showtime.  A nil Redis client turns it into a no-op so the server
// still runs without Redis; terminals then rely on their own refreshes.
type Publisher struct {
	rdb *redis.Client
	log observability.Logger
}

func NewPublisher(rdb *redis.Client, log observability.Logger) *Publisher {
	if log == nil {
		log = observability.Discard()
	}
	return &Publisher{rdb: rdb, log: log}
}

// PublishSeatUpdate sends ev on its showtime channel.
func (p *Publisher) PublishSeatUpdate(ctx context.Context, ev model.SeatUpdateEvent) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode seat update")
	}
	if err := p.rdb.Publish(ctx, ChannelName(ev.ShowtimeID), body).Err(); err != nil {
		return errors.Wrapf(err, "publish seat %d update", ev.SeatID)
	}
	observability.SeatEventsPublished.WithLabelValues(string(ev.Status)).Inc()
	return nil
}

// PublishAll publishes each event, logging failures.  Delivery is best
// effort: a lost event only delays the terminal until its next refresh.
func (p *Publisher) PublishAll(ctx context.Context, events []model.SeatUpdateEvent) {
	for _, ev := range events {
		if err := p.PublishSeatUpdate(ctx, ev); err != nil {
			p.log.WithError(err).WithField("showtime_id", ev.ShowtimeID).
				WithField("seat_id", ev.SeatID).Warn("seat update not published")
		}
	}
}
