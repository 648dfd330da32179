package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// Publisher sends ListingChangedEvent messages to a durable queue.  Each
// call dials its own connection, so a broker outage only fails the publish
// in progress.  Errors are logged and returned; callers are free to ignore
// them because the write they describe has already been stored.
type Publisher struct {
    URL   string
    Queue string
    Log   zerolog.Logger
}

// NewPublisher returns a Publisher for queue on the broker at url.
func NewPublisher(url, queue string, log zerolog.Logger) *Publisher {
    return &Publisher{URL: url, Queue: queue, Log: log.With().Str("component", "publisher").Logger()}
}

// Publish marshals ev and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev ListingChangedEvent) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        p.Log.Warn().Err(err).Msg("dial failed")
        return fmt.Errorf("dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.Log.Warn().Err(err).Msg("channel open failed")
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // idempotent; durable so messages survive broker restarts
    if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
        p.Log.Warn().Err(err).Str("queue", p.Queue).Msg("queue declare failed")
        return fmt.Errorf("declare queue: %w", err)
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         "listing." + ev.Action,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
        p.Log.Warn().Err(err).Uint64("listing_id", ev.ListingID).Msg("publish failed")
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}
