package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/cockroachdb/errors"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/cinema-pos/internal/observability"
)

// Consumer drains BookingQueue and appends one audit line per booking
// to a log file.
type Consumer struct {
    url     string
    logPath string
    log     observability.Logger
}

func NewConsumer(url, logPath string, log observability.Logger) *Consumer {
    if logPath == "" {
        logPath = filepath.Join("logs", "booking.log")
    }
    if log == nil {
        log = observability.Discard()
    }
    return &Consumer{url: url, logPath: logPath, log: log}
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).Warnf("booking-consumer: dial failed, retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.WithError(err).Warn("booking-consumer: consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return errors.Wrap(err, "channel open")
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.WithError(err).Warn("booking-consumer: set QoS failed")
    }
    if _, err := declare(ch); err != nil {
        return err
    }
    msgs, err := ch.Consume(BookingQueue, "", false, false, false, false, nil)
    if err != nil {
        return errors.Wrap(err, "queue consume")
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Handle(d.Body); err != nil {
                c.log.WithError(err).Error("booking-consumer: handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message and appends its audit line.
func (c *Consumer) Handle(body []byte) error {
    var ev BookingConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return errors.Wrap(err, "unmarshal")
    }
    if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
        return errors.Wrap(err, "mkdir logs")
    }
    f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return errors.Wrap(err, "open log file")
    }
    defer f.Close()

    if err := writeLine(f, ev); err != nil {
        return errors.Wrap(err, "write log")
    }
    c.log.WithField("booking_id", ev.BookingID).WithField("showtime_id", ev.ShowtimeID).Info("booking confirmed")
    return nil
}

func writeLine(w io.Writer, ev BookingConfirmedEvent) error {
    _, err := fmt.Fprintf(w,
        "[%s] Booking confirmed | booking_id=%d | operator_id=%d | showtime_id=%d | movie=%q | type=%s | payment=%s | total=%d | seats=[%s] | food_drinks=%d\n",
        ev.ConfirmedAt, ev.BookingID, ev.OperatorID, ev.ShowtimeID, ev.MovieTitle,
        ev.BookingType, ev.PaymentMethod, ev.TotalPrice, strings.Join(ev.SeatLabels, ","), ev.FoodDrinks)
    return err
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
