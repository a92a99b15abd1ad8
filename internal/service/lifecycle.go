package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/repository"
)

// transitions holds every legal status edge and the notification it fires.
// Edges into rescheduled are only taken through Reschedule.
var transitions = map[model.BookingStatus]map[model.BookingStatus]model.NotificationEvent{
	model.BookingPending: {
		model.BookingReviewing:   model.EventBookingCreated,
		model.BookingConfirmed:   model.EventBookingConfirmed,
		model.BookingRejected:    model.EventBookingCancelled,
		model.BookingCancelled:   model.EventBookingCancelled,
		model.BookingRescheduled: model.EventBookingRescheduled,
	},
	model.BookingReviewing: {
		model.BookingConfirmed:   model.EventBookingConfirmed,
		model.BookingRejected:    model.EventBookingCancelled,
		model.BookingCancelled:   model.EventBookingCancelled,
		model.BookingRescheduled: model.EventBookingRescheduled,
	},
	model.BookingConfirmed: {
		model.BookingCompleted:   model.EventBookingCompleted,
		model.BookingRejected:    model.EventBookingCancelled,
		model.BookingCancelled:   model.EventBookingCancelled,
		model.BookingRescheduled: model.EventBookingRescheduled,
	},
	model.BookingRescheduled: {
		model.BookingReviewing:   model.EventBookingCreated,
		model.BookingConfirmed:   model.EventBookingConfirmed,
		model.BookingRejected:    model.EventBookingCancelled,
		model.BookingCancelled:   model.EventBookingCancelled,
		model.BookingRescheduled: model.EventBookingRescheduled,
	},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to model.BookingStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// NextStatuses lists the statuses reachable from from, in lifecycle order.
func NextStatuses(from model.BookingStatus) []model.BookingStatus {
	out := []model.BookingStatus{}
	for _, s := range model.BookingStatuses {
		if CanTransition(from, s) {
			out = append(out, s)
		}
	}
	return out
}

// TransitionOptions carries the optional inputs of a status change.  NewDate
// and NewTime are only read when the target is rescheduled.
type TransitionOptions struct {
	Reason  string
	NewDate string
	NewTime string
}

// RescheduleInput moves a booking to a new date and optionally a new start
// time.
type RescheduleInput struct {
	NewDate string `json:"new_date" validate:"required,datetime=2006-01-02"`
	NewTime string `json:"new_time" validate:"omitempty,datetime=15:04"`
	Reason  string `json:"reason" validate:"max=1000"`
}

// DetailsUpdate is an admin edit of a booking.  Nil fields are left as they
// are.
type DetailsUpdate struct {
	InternalNotes *string `json:"internal_notes" validate:"omitempty,max=5000"`
	AssignedTo    *string `json:"assigned_to" validate:"omitempty,max=120"`
	ClientName    *string `json:"client_name" validate:"omitempty,min=2,max=200"`
	ClientEmail   *string `json:"client_email" validate:"omitempty,email,max=254"`
	ClientPhone   *string `json:"client_phone" validate:"omitempty,min=5,max=40"`
	Company       *string `json:"company" validate:"omitempty,max=200"`
}

// BookingService drives the booking lifecycle.  Each change is one
// transaction holding the status write and its audit entries; notifications
// are dispatched after commit and never fail the call.
type BookingService struct {
	store  BookingStore
	notify Notifier
	clock  clockwork.Clock
	log    *slog.Logger
}

// NewBookingService wires a BookingService.
func NewBookingService(store BookingStore, n Notifier, clock clockwork.Clock, log *slog.Logger) *BookingService {
	return &BookingService{store: store, notify: n, clock: clock, log: log}
}

// Get loads one booking with its logs.
func (s *BookingService) Get(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.log, "get booking", err)
	}
	return b, nil
}

// List returns a page of bookings and the total number matching f.
func (s *BookingService) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, NewValidationError("status", "unknown status")
	}
	out, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, 0, storeError(s.log, "list bookings", err)
	}
	return out, total, nil
}

// Transition moves booking id to target.  A target of rescheduled is handled
// by Reschedule and needs opts.NewDate.
func (s *BookingService) Transition(ctx context.Context, id string, target model.BookingStatus, actor string, opts TransitionOptions) (*model.Booking, error) {
	if !target.Valid() {
		return nil, NewValidationError("status", "unknown status")
	}
	if target == model.BookingRescheduled {
		return s.Reschedule(ctx, id, RescheduleInput{NewDate: opts.NewDate, NewTime: opts.NewTime, Reason: opts.Reason}, actor)
	}
	reason := strings.TrimSpace(opts.Reason)
	now := s.clock.Now().UTC()
	actor = actorOrSystem(actor)

	var event model.NotificationEvent
	b, err := s.store.Mutate(ctx, id, func(b *model.Booking) (repository.BookingMutation, error) {
		from := b.Status
		ev, ok := transitions[from][target]
		if !ok {
			return repository.BookingMutation{}, &TransitionError{From: string(from), To: string(target)}
		}
		event = ev
		b.Status = target
		b.UpdatedAt = now
		detail := fmt.Sprintf("%s -> %s", from, target)
		if reason != "" {
			detail += ": " + reason
		}
		return repository.BookingMutation{
			Activity: model.ActivityEntry{Action: model.ActivityStatusChanged, Actor: actor, Timestamp: now, Detail: detail},
		}, nil
	})
	if err != nil {
		return nil, storeError(s.log, "transition booking", err)
	}

	var meta map[string]string
	if event == model.EventBookingCancelled && reason != "" {
		meta = map[string]string{"reason": reason}
	}
	s.notify.Dispatch(ctx, event, b, meta)
	return b, nil
}

// Reschedule moves the event date, records the move in both logs and sets
// the status to rescheduled.  The notification carries the date the booking
// had before the call.
func (s *BookingService) Reschedule(ctx context.Context, id string, in RescheduleInput, actor string) (*model.Booking, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if in.NewDate < now.Format(dateLayout) {
		return nil, NewValidationError("new_date", "must not be in the past")
	}
	reason := strings.TrimSpace(in.Reason)
	actor = actorOrSystem(actor)

	var oldDate, oldTime string
	b, err := s.store.Mutate(ctx, id, func(b *model.Booking) (repository.BookingMutation, error) {
		from := b.Status
		if !CanTransition(from, model.BookingRescheduled) {
			return repository.BookingMutation{}, &TransitionError{From: string(from), To: string(model.BookingRescheduled)}
		}
		oldDate, oldTime = b.EventDate, b.StartTime
		newTime := oldTime
		if in.NewTime != "" {
			newTime = in.NewTime
		}
		b.EventDate = in.NewDate
		b.StartTime = newTime
		b.Status = model.BookingRescheduled
		b.UpdatedAt = now

		detail := fmt.Sprintf("%s %s -> %s %s", oldDate, oldTime, in.NewDate, newTime)
		if reason != "" {
			detail += ": " + reason
		}
		return repository.BookingMutation{
			Activity: model.ActivityEntry{Action: model.ActivityRescheduled, Actor: actor, Timestamp: now, Detail: detail},
			Reschedule: &model.RescheduleEntry{
				FromDate:  oldDate,
				ToDate:    in.NewDate,
				FromTime:  oldTime,
				ToTime:    newTime,
				Reason:    reason,
				Timestamp: now,
				Actor:     actor,
			},
		}, nil
	})
	if err != nil {
		return nil, storeError(s.log, "reschedule booking", err)
	}

	s.notify.Dispatch(ctx, model.EventBookingRescheduled, b, map[string]string{
		"old_date": oldDate,
		"old_time": oldTime,
		"reason":   reason,
	})
	return b, nil
}

// UpdateDetails applies an admin edit and records it in the activity log.
func (s *BookingService) UpdateDetails(ctx context.Context, id string, upd DetailsUpdate, actor string) (*model.Booking, error) {
	if err := validateStruct(upd); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	actor = actorOrSystem(actor)

	b, err := s.store.Mutate(ctx, id, func(b *model.Booking) (repository.BookingMutation, error) {
		changed := []string{}
		set := func(name string, dst *string, v *string) {
			if v != nil && *dst != *v {
				*dst = *v
				changed = append(changed, name)
			}
		}
		set("internal_notes", &b.InternalNotes, upd.InternalNotes)
		set("assigned_to", &b.AssignedTo, upd.AssignedTo)
		set("client_name", &b.ClientName, upd.ClientName)
		set("client_email", &b.ClientEmail, upd.ClientEmail)
		set("client_phone", &b.ClientPhone, upd.ClientPhone)
		if upd.Company != nil {
			c := strings.TrimSpace(*upd.Company)
			switch {
			case c == "" && b.Company != nil:
				b.Company = nil
				changed = append(changed, "company")
			case c != "" && (b.Company == nil || *b.Company != c):
				b.Company = &c
				changed = append(changed, "company")
			}
		}
		b.UpdatedAt = now
		detail := "no changes"
		if len(changed) > 0 {
			detail = "updated " + strings.Join(changed, ", ")
		}
		return repository.BookingMutation{
			Activity: model.ActivityEntry{Action: model.ActivityDetailsUpdated, Actor: actor, Timestamp: now, Detail: detail},
		}, nil
	})
	if err != nil {
		return nil, storeError(s.log, "update booking", err)
	}
	return b, nil
}

// Delete removes a booking and its audit trail.  No notification is sent.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	return storeError(s.log, "delete booking", s.store.Delete(ctx, id))
}

// Resend re-triggers a client notification synchronously so the caller sees
// a delivery failure.  A successful send is recorded in the activity log; if
// recording fails the send still counts and the booking as loaded is returned.
func (s *BookingService) Resend(ctx context.Context, id string, event model.NotificationEvent, actor string) (*model.Booking, error) {
	if !event.Resendable() {
		return nil, NewValidationError("event", "unknown notification event")
	}
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.log, "get booking", err)
	}

	var meta map[string]string
	if event == model.EventBookingRescheduled && len(b.RescheduleHistory) > 0 {
		last := b.RescheduleHistory[len(b.RescheduleHistory)-1]
		meta = map[string]string{"old_date": last.FromDate, "old_time": last.FromTime, "reason": last.Reason}
	}
	if err := s.notify.Send(ctx, event, b, meta); err != nil {
		s.log.Error("notification resend failed",
			slog.String("event", string(event)),
			slog.String("booking_id", id),
			slog.Time("timestamp", s.clock.Now()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("resend %s: %w", event, ErrNotification)
	}

	now := s.clock.Now().UTC()
	actor = actorOrSystem(actor)
	out, err := s.store.Mutate(ctx, id, func(b *model.Booking) (repository.BookingMutation, error) {
		b.UpdatedAt = now
		return repository.BookingMutation{
			Activity: model.ActivityEntry{Action: model.ActivityNotificationResent, Actor: actor, Timestamp: now, Detail: string(event)},
		}, nil
	})
	if err != nil {
		// The mail already went out; only the audit entry is missing.
		s.log.Error("record notification resend failed",
			slog.String("event", string(event)),
			slog.String("booking_id", id),
			slog.Any("error", err),
		)
		return b, nil
	}
	return out, nil
}

func actorOrSystem(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return "system"
}
