package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultDialTimeout = 30 * time.Second

// Publisher sends NotificationMessages to a durable queue through the default
// exchange.  The connection is opened lazily and re-dialled after it drops.
// Only one dial runs at a time; other publishers wait for it or for their
// own context, whichever ends first.
type Publisher struct {
	url   string
	queue string

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	dialing chan struct{}
}

// NewPublisher returns a publisher for queue on the broker at url.
func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// Publish marshals msg and publishes it as a persistent message.  Connecting
// is bounded by the deadline of ctx.
func (p *Publisher) Publish(ctx context.Context, msg NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msg.Event),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.mu.Lock()
		if p.ch == ch {
			p.reset()
		}
		p.mu.Unlock()
		return fmt.Errorf("publish %s: %w", msg.Event, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reset()
}

func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		p.mu.Lock()
		if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
			ch := p.ch
			p.mu.Unlock()
			return ch, nil
		}
		if wait := p.dialing; wait != nil {
			p.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, fmt.Errorf("dial rabbitmq: %w", ctx.Err())
			}
		}
		p.reset()
		done := make(chan struct{})
		p.dialing = done
		p.mu.Unlock()

		conn, ch, err := p.dial(ctx)

		p.mu.Lock()
		p.dialing = nil
		if err == nil {
			p.conn, p.ch = conn, ch
		}
		p.mu.Unlock()
		close(done)
		return ch, err
	}
}

func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	timeout := defaultDialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
		if timeout <= 0 {
			return nil, nil, fmt.Errorf("dial rabbitmq: %w", context.DeadlineExceeded)
		}
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := DeclareTopology(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// reset drops the cached channel and connection.  Callers hold p.mu.
func (p *Publisher) reset() error {
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}

// DeadLetterQueue names the queue that collects rejected notifications.
func DeadLetterQueue(queue string) string { return queue + ".dlq" }

// DeclareTopology declares the work queue, its dead-letter exchange and the
// dead-letter queue.  Declarations are idempotent and shared by the
// publisher and the consumer so both agree on the queue arguments.
func DeclareTopology(ch *amqp.Channel, queue string) error {
	dlx := queue + ".dlx"
	dlq := DeadLetterQueue(queue)
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlx: %w", err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq: %w", err)
	}
	if err := ch.QueueBind(dlq, "", dlx, false, nil); err != nil {
		return fmt.Errorf("bind dlq: %w", err)
	}
	args := amqp.Table{"x-dead-letter-exchange": dlx}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	return nil
}
