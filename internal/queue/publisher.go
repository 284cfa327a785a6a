package queue

import (
    "context"
    "encoding/json"
    "time"

    "github.com/cockroachdb/errors"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/cinema-pos/internal/observability"
)

// Publisher sends booking events to RabbitMQ.  Each publish dials its
// own connection; bookings are rare enough that pooling buys nothing.
// Errors are logged and returned so callers can ignore them without
// failing the booking.
type Publisher struct {
    url string
    log observability.Logger
}

func NewPublisher(url string, log observability.Logger) *Publisher {
    if log == nil {
        log = observability.Discard()
    }
    return &Publisher{url: url, log: log}
}

// PublishBookingConfirmed sends ev as a persistent message on
// BookingQueue.  A nil Publisher or empty URL is a no-op.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
    if p == nil || p.url == "" {
        return nil
    }
    err := p.publish(ctx, ev)
    if err != nil {
        p.log.WithError(err).WithField("booking_id", ev.BookingID).Warn("booking event not published")
    }
    return err
}

func (p *Publisher) publish(ctx context.Context, ev BookingConfirmedEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return errors.Wrap(err, "rabbitmq dial")
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return errors.Wrap(err, "rabbitmq channel")
    }
    defer func() { _ = ch.Close() }()

    if _, err := declare(ch); err != nil {
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return errors.Wrap(err, "encode booking event")
    }

    return errors.Wrap(ch.PublishWithContext(ctx,
        "",           // default exchange
        BookingQueue, // routing key = queue name
        false,        // mandatory
        false,        // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Body:         body,
        },
    ), "rabbitmq publish")
}

// declare makes sure the durable queue exists.  It is idempotent.
func declare(ch *amqp.Channel) (amqp.Queue, error) {
    q, err := ch.QueueDeclare(BookingQueue, true, false, false, false, nil)
    return q, errors.Wrap(err, "queue declare")
}
