// Package notify turns lifecycle and submission events into outbound
// notifications.  Dispatch is fire-and-forget: callers never wait on the
// transport and failures only reach the log.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/queue"
)

// Publisher is the outbound transport.  queue.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg queue.NotificationMessage) error
}

// Options tunes a Dispatcher.
type Options struct {
	// AdminEmail receives booking_received_admin and contact_received alerts.
	// Empty disables them.
	AdminEmail string
	// Timeout bounds every publish attempt.  Zero means 10s.
	Timeout time.Duration
}

// Dispatcher publishes notifications in the background.
type Dispatcher struct {
	pub     Publisher
	log     *slog.Logger
	clock   clockwork.Clock
	admin   string
	timeout time.Duration

	wg      sync.WaitGroup
	noAdmin sync.Once
}

// NewDispatcher builds a Dispatcher.  A nil clock means the real clock.
func NewDispatcher(pub Publisher, log *slog.Logger, clock clockwork.Clock, opts Options) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		pub:     pub,
		log:     log,
		clock:   clock,
		admin:   opts.AdminEmail,
		timeout: opts.Timeout,
	}
}

// Dispatch publishes event for b without blocking the caller.  The publish
// runs on a context detached from ctx so a finished request does not cancel
// it.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.NotificationEvent, b *model.Booking, meta map[string]string) {
	d.Go(ctx, d.BookingMessage(event, b, meta))
}

// DispatchContact alerts the admin address about a new contact message.
func (d *Dispatcher) DispatchContact(ctx context.Context, m *model.ContactMessage) {
	d.Go(ctx, d.ContactMessage(m))
}

// DispatchWelcome sends the newsletter welcome to s.
func (d *Dispatcher) DispatchWelcome(ctx context.Context, s *model.Subscriber) {
	d.Go(ctx, d.WelcomeMessage(s))
}

// Go publishes msg in the background.  Admin alerts are dropped when no admin
// address is configured.
func (d *Dispatcher) Go(ctx context.Context, msg queue.NotificationMessage) {
	if msg.Recipient == "" {
		d.noAdmin.Do(func() {
			d.log.Warn("ADMIN_EMAIL not set, admin alerts are not sent",
				slog.String("event", string(msg.Event)),
			)
		})
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification dispatch panicked",
					slog.String("event", string(msg.Event)),
					slog.String("booking_id", msg.BookingID),
					slog.Any("panic", r),
				)
			}
		}()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.pub.Publish(dctx, msg); err != nil {
			d.log.Error("notification dispatch failed",
				slog.String("event", string(msg.Event)),
				slog.String("booking_id", msg.BookingID),
				slog.Time("timestamp", d.clock.Now()),
				slog.Any("error", err),
			)
		}
	}()
}

// Send publishes event for b and waits for the result.
func (d *Dispatcher) Send(ctx context.Context, event model.NotificationEvent, b *model.Booking, meta map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	msg := d.BookingMessage(event, b, meta)
	if err := d.pub.Publish(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// Wait blocks until every in-flight dispatch has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// BookingMessage builds the payload for a booking event.  Admin alerts go to
// the configured admin address, everything else to the client.
func (d *Dispatcher) BookingMessage(event model.NotificationEvent, b *model.Booking, meta map[string]string) queue.NotificationMessage {
	data := map[string]string{
		"reference":  b.Reference,
		"event_name": b.EventName,
		"event_type": b.EventType,
		"event_date": b.EventDate,
		"start_time": b.StartTime,
		"end_time":   b.EndTime,
		"venue":      b.Venue,
		"status":     string(b.Status),
	}
	for k, v := range meta {
		data[k] = v
	}
	msg := queue.NotificationMessage{
		ID:            uuid.NewString(),
		Event:         event,
		Recipient:     b.ClientEmail,
		RecipientName: b.ClientName,
		BookingID:     b.ID,
		Reference:     b.Reference,
		Data:          data,
		OccurredAt:    d.clock.Now().UTC(),
	}
	if event == model.EventBookingReceivedAdmin {
		msg.Recipient = d.admin
		msg.Data["client_name"] = b.ClientName
		msg.Data["client_email"] = b.ClientEmail
	}
	return msg
}

// ContactMessage builds the admin alert for a new contact message.
func (d *Dispatcher) ContactMessage(m *model.ContactMessage) queue.NotificationMessage {
	return queue.NotificationMessage{
		ID:        uuid.NewString(),
		Event:     model.EventContactReceived,
		Recipient: d.admin,
		Reference: m.Reference,
		Data: map[string]string{
			"reference": m.Reference,
			"name":      m.Name,
			"email":     m.Email,
			"subject":   m.Subject,
			"message":   m.Message,
		},
		OccurredAt: d.clock.Now().UTC(),
	}
}

// WelcomeMessage builds the newsletter welcome for s.
func (d *Dispatcher) WelcomeMessage(s *model.Subscriber) queue.NotificationMessage {
	return queue.NotificationMessage{
		ID:            uuid.NewString(),
		Event:         model.EventNewsletterWelcome,
		Recipient:     s.Email,
		RecipientName: s.Name,
		OccurredAt:    d.clock.Now().UTC(),
	}
}
