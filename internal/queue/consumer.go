package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// Handler processes one decoded event.  A returned error rejects the
// delivery without requeueing it.
type Handler func(ctx context.Context, ev ListingChangedEvent) error

// Consumer reads ListingChangedEvent messages from a durable queue.
type Consumer struct {
    URL      string
    Queue    string
    Prefetch int
    Log      zerolog.Logger
    Handle   Handler
}

// LogHandler writes each event to log as one structured line.
func LogHandler(log zerolog.Logger) Handler {
    return func(_ context.Context, ev ListingChangedEvent) error {
        log.Info().
            Str("event_id", ev.EventID).
            Str("action", ev.Action).
            Uint64("listing_id", ev.ListingID).
            Uint64("owner_id", ev.OwnerID).
            Str("title", ev.Title).
            Int("price", ev.Price).
            Bool("is_published", ev.IsPublished).
            Str("occurred_at", ev.OccurredAt).
            Msg("listing changed")
        return nil
    }
}

// Run connects to the broker and consumes until ctx is cancelled.  Dial
// failures and closed delivery channels are retried with a capped
// exponential backoff.  Run returns ctx.Err() on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn().Err(err).Msg("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    prefetch := c.Prefetch
    if prefetch <= 0 {
        prefetch = 50
    }
    if err := ch.Qos(prefetch, 0, false); err != nil {
        c.Log.Warn().Err(err).Msg("set QoS failed")
    }
    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handle(ctx, d.Body); err != nil {
                c.Log.Error().Err(err).Msg("handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
    var ev ListingChangedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ListingID == 0 || ev.Action == "" {
        return fmt.Errorf("incomplete event %q", ev.EventID)
    }
    h := c.Handle
    if h == nil {
        h = LogHandler(c.Log)
    }
    return h(ctx, ev)
}

// sleep waits for d or until ctx is done and reports whether d elapsed.
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
