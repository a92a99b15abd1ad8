package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded notification.  A returned error rejects the
// delivery without requeueing, which routes it to the dead-letter queue.
type Handler interface {
	Handle(ctx context.Context, msg NotificationMessage) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg NotificationMessage) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg NotificationMessage) error { return f(ctx, msg) }

// Consumer reads notifications from the work queue and hands them to a
// Handler.  Run keeps reconnecting with exponential backoff until ctx is
// cancelled.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handler  Handler
	log      *slog.Logger
}

// NewConsumer returns a consumer for queue on the broker at url.
func NewConsumer(url, queue string, prefetch int, h Handler, log *slog.Logger) *Consumer {
	if prefetch <= 0 {
		prefetch = 10
	}
	return &Consumer{url: url, queue: queue, prefetch: prefetch, handler: h, log: log}
}

// Run blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("notification consumer dial failed", slog.Any("error", err), slog.Duration("retry_in", backoff))
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
		c.log.Warn("notification consumer loop ended, reconnecting", slog.Any("error", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.Warn("notification consumer qos failed", slog.Any("error", err))
	}
	if err := DeclareTopology(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
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
			c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	var msg NotificationMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.log.Error("notification payload rejected", slog.Any("error", err), slog.String("message_id", d.MessageId))
		_ = d.Nack(false, false)
		return
	}
	if err := c.handler.Handle(ctx, msg); err != nil {
		c.log.Error("notification delivery failed",
			slog.Any("error", err),
			slog.String("event", string(msg.Event)),
			slog.String("booking_id", msg.BookingID),
			slog.String("message_id", msg.ID),
		)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
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
