package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

// InboxService is the admin side of contact messages and the newsletter.
type InboxService struct {
	messages    ContactStore
	subscribers SubscriberStore
	clock       clockwork.Clock
	log         *slog.Logger
}

// NewInboxService wires an InboxService.
func NewInboxService(messages ContactStore, subscribers SubscriberStore, clock clockwork.Clock, log *slog.Logger) *InboxService {
	return &InboxService{messages: messages, subscribers: subscribers, clock: clock, log: log}
}

// List returns a page of messages and the total matching f.
func (s *InboxService) List(ctx context.Context, f model.MessageFilter) ([]model.ContactMessage, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, NewValidationError("status", "unknown status")
	}
	out, total, err := s.messages.List(ctx, f)
	if err != nil {
		return nil, 0, storeError(s.log, "list messages", err)
	}
	return out, total, nil
}

// Open loads a message for reading and marks it read if it was unread.
// Opening a message that is already read, replied or archived changes
// nothing.
func (s *InboxService) Open(ctx context.Context, id string) (*model.ContactMessage, error) {
	if _, err := s.messages.MarkReadIfUnread(ctx, id, s.clock.Now().UTC()); err != nil {
		return nil, storeError(s.log, "mark message read", err)
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.log, "get message", err)
	}
	return m, nil
}

// SetStatus moves a message to status.  Entering replied stamps replied_at.
func (s *InboxService) SetStatus(ctx context.Context, id string, status model.MessageStatus) (*model.ContactMessage, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", "unknown status")
	}
	now := s.clock.Now().UTC()
	var repliedAt *time.Time
	if status == model.MessageReplied {
		repliedAt = &now
	}
	if err := s.messages.UpdateStatus(ctx, id, status, repliedAt, now); err != nil {
		return nil, storeError(s.log, "update message status", err)
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.log, "get message", err)
	}
	return m, nil
}

// SetNotes replaces the admin notes of a message.
func (s *InboxService) SetNotes(ctx context.Context, id, notes string) (*model.ContactMessage, error) {
	if err := validate.Var(notes, "max=5000"); err != nil {
		return nil, NewValidationError("admin_notes", "must be at most 5000 characters")
	}
	if err := s.messages.UpdateNotes(ctx, id, notes, s.clock.Now().UTC()); err != nil {
		return nil, storeError(s.log, "update message notes", err)
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.log, "get message", err)
	}
	return m, nil
}

// Delete removes a message.
func (s *InboxService) Delete(ctx context.Context, id string) error {
	return storeError(s.log, "delete message", s.messages.Delete(ctx, id))
}

// SubscriberCounts reports newsletter subscribers per status.
func (s *InboxService) SubscriberCounts(ctx context.Context) (map[model.SubscriberStatus]int, error) {
	out := map[model.SubscriberStatus]int{}
	for _, st := range []model.SubscriberStatus{model.SubscriberConfirmed, model.SubscriberUnsubscribed} {
		n, err := s.subscribers.CountByStatus(ctx, st)
		if err != nil {
			return nil, storeError(s.log, "count subscribers", err)
		}
		out[st] = n
	}
	return out, nil
}
