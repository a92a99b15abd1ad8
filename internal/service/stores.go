package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/repository"
)

// BookingStore is the persistence the booking services need.
// *repository.BookingRepo satisfies it.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, int, error)
	Mutate(ctx context.Context, id string, fn repository.MutateFunc) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
}

// QuoteStore persists quotes.  *repository.QuoteRepo satisfies it.
type QuoteStore interface {
	Create(ctx context.Context, q *model.Quote) error
	Update(ctx context.Context, q *model.Quote) error
	UpdateStatus(ctx context.Context, id string, status model.QuoteStatus, at time.Time) error
	GetByID(ctx context.Context, id string) (*model.Quote, error)
	List(ctx context.Context, status model.QuoteStatus, limit, offset int) ([]model.Quote, error)
	Delete(ctx context.Context, id string) error
}

// ContactStore persists contact messages.  *repository.ContactRepo
// satisfies it.
type ContactStore interface {
	Create(ctx context.Context, m *model.ContactMessage) error
	GetByID(ctx context.Context, id string) (*model.ContactMessage, error)
	List(ctx context.Context, f model.MessageFilter) ([]model.ContactMessage, int, error)
	MarkReadIfUnread(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id string, status model.MessageStatus, repliedAt *time.Time, at time.Time) error
	UpdateNotes(ctx context.Context, id, notes string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// SubscriberStore persists newsletter subscribers.
// *repository.SubscriberRepo satisfies it.
type SubscriberStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Subscriber, error)
	Create(ctx context.Context, s *model.Subscriber) error
	UpdateStatus(ctx context.Context, email string, status model.SubscriberStatus, at time.Time) error
	CountByStatus(ctx context.Context, status model.SubscriberStatus) (int, error)
}

// Notifier is the outbound notification boundary.  Dispatch variants never
// report failure; Send is the synchronous path used by an explicit resend.
// *notify.Dispatcher satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, event model.NotificationEvent, b *model.Booking, meta map[string]string)
	DispatchContact(ctx context.Context, m *model.ContactMessage)
	DispatchWelcome(ctx context.Context, s *model.Subscriber)
	Send(ctx context.Context, event model.NotificationEvent, b *model.Booking, meta map[string]string) error
}

// storeError maps repository errors onto the service taxonomy.  Unknown
// errors are logged in full and returned as ErrPersistence so internal
// detail never reaches a client.
func storeError(log *slog.Logger, op string, err error) error {
	var (
		ve *ValidationError
		te *TransitionError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateEntry
	case errors.As(err, &ve), errors.As(err, &te):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	log.Error("persistence failure", slog.String("op", op), slog.Any("error", err))
	return fmt.Errorf("%s: %w", op, ErrPersistence)
}
