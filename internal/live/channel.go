// Package live carries seat-update events between the backing store and
// operator terminals over Redis pub/sub, one channel per showtime.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
)

// ChannelName is the pub/sub channel of a showtime's seat updates.
func ChannelName(showtimeID uint64) string {
	return fmt.Sprintf("showtime:%d:seat-updates", showtimeID)
}

// eventBuffer is how many decoded events may wait for the consumer
// before the forwarder blocks.
const eventBuffer = 64

// Channel subscribes to seat updates of individual showtimes.  It owns
// one Redis subscription per joined showtime; Close tears all of them
// down.  The zero value is not usable; use NewChannel.
type Channel struct {
	rdb *redis.Client
	log observability.Logger

	mu     sync.Mutex
	subs   map[uint64]*subscription
	closed bool
}

type subscription struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChannel returns a Channel over rdb.
func NewChannel(rdb *redis.Client, log observability.Logger) *Channel {
	if log == nil {
		log = observability.Discard()
	}
	return &Channel{rdb: rdb, log: log, subs: make(map[uint64]*subscription)}
}

// Join subscribes to showtimeID and returns its events in publish
// order.  Joining a showtime twice replaces the earlier subscription.
// The returned channel is closed after Leave or Close.
func (c *Channel) Join(ctx context.Context, showtimeID uint64) (<-chan model.SeatUpdateEvent, error) {
	if c.rdb == nil {
		return nil, errors.New("live: redis unavailable")
	}
	if err := c.Leave(showtimeID); err != nil {
		return nil, err
	}

	ps := c.rdb.Subscribe(ctx, ChannelName(showtimeID))
	// Receive blocks until the subscription is confirmed, so events
	// published after Join returns are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrapf(err, "subscribe showtime %d", showtimeID)
	}

	fwdCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{ps: ps, cancel: cancel, done: make(chan struct{})}
	out := make(chan model.SeatUpdateEvent, eventBuffer)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		_ = ps.Close()
		return nil, errors.New("live: channel closed")
	}
	c.subs[showtimeID] = sub
	c.mu.Unlock()

	go c.forward(fwdCtx, showtimeID, sub, out)
	c.log.WithField("showtime_id", showtimeID).Debug("joined seat updates")
	return out, nil
}

func (c *Channel) forward(ctx context.Context, showtimeID uint64, sub *subscription, out chan<- model.SeatUpdateEvent) {
	defer close(sub.done)
	defer close(out)

	msgs := sub.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev model.SeatUpdateEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				c.log.WithError(err).WithField("channel", msg.Channel).Warn("dropping malformed seat update")
				continue
			}
			if ev.ShowtimeID == 0 {
				ev.ShowtimeID = showtimeID
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Leave ends the subscription to showtimeID.  Leaving a showtime that
// was never joined is a no-op.
func (c *Channel) Leave(showtimeID uint64) error {
	c.mu.Lock()
	sub, ok := c.subs[showtimeID]
	delete(c.subs, showtimeID)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.stop(sub)
}

// Close leaves every joined showtime.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	subs := c.subs
	c.subs = make(map[uint64]*subscription)
	c.mu.Unlock()

	var errs error
	for _, sub := range subs {
		errs = errors.CombineErrors(errs, c.stop(sub))
	}
	return errs
}

func (c *Channel) stop(sub *subscription) error {
	sub.cancel()
	err := sub.ps.Close()
	<-sub.done
	return errors.Wrap(err, "close subscription")
}
