package service

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/ratelimit"
	"github.com/iliyamo/avstage-backoffice/internal/repository"
)

// Rule is one fixed-window limit.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limits holds the per-form submission limits.  Each form counts in its own
// bucket per client identity.
type Limits struct {
	Booking    Rule
	Contact    Rule
	Newsletter Rule
}

// BookingInput is the public booking form.
type BookingInput struct {
	ClientName          string   `json:"client_name" validate:"required,min=2,max=200"`
	ClientEmail         string   `json:"client_email" validate:"required,email,max=254"`
	ClientPhone         string   `json:"client_phone" validate:"required,min=5,max=40"`
	Company             string   `json:"company" validate:"max=200"`
	EventName           string   `json:"event_name" validate:"required,max=200"`
	EventType           string   `json:"event_type" validate:"required,max=60"`
	EventDate           string   `json:"event_date" validate:"required,datetime=2006-01-02"`
	StartTime           string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string   `json:"end_time" validate:"required,datetime=15:04"`
	Venue               string   `json:"venue" validate:"required,max=300"`
	Attendees           int      `json:"attendees" validate:"gte=1,lte=100000"`
	Services            []string `json:"services" validate:"required,min=1,max=20,dive,required,max=60"`
	SpecialRequirements string   `json:"special_requirements" validate:"max=5000"`
	BudgetRange         string   `json:"budget_range" validate:"max=60"`
	ContactChannel      string   `json:"contact_channel" validate:"omitempty,oneof=email phone whatsapp"`
	ReferralSource      string   `json:"referral_source" validate:"max=60"`
}

// ContactInput is the public contact form.
type ContactInput struct {
	Name     string `json:"name" validate:"required,min=2,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"omitempty,min=5,max=40"`
	Subject  string `json:"subject" validate:"required,max=300"`
	Message  string `json:"message" validate:"required,min=10,max=5000"`
	Service  string `json:"service" validate:"max=60"`
	HowHeard string `json:"how_heard" validate:"max=60"`
}

// SubscribeInput is the newsletter signup form.
type SubscribeInput struct {
	Email  string `json:"email" validate:"required,email,max=254"`
	Name   string `json:"name" validate:"max=200"`
	Source string `json:"source" validate:"max=60"`
}

// Gateway accepts public submissions: rate limit, validate, check for
// duplicates, persist, then notify in the background.  A denied request has
// no side effects.
type Gateway struct {
	limiter     ratelimit.Limiter
	limits      Limits
	bookings    BookingStore
	messages    ContactStore
	subscribers SubscriberStore
	notify      Notifier
	clock       clockwork.Clock
	log         *slog.Logger
}

// GatewayDeps groups the collaborators of a Gateway.
type GatewayDeps struct {
	Limiter     ratelimit.Limiter // nil disables submission limits
	Limits      Limits
	Bookings    BookingStore
	Messages    ContactStore
	Subscribers SubscriberStore
	Notifier    Notifier
	Clock       clockwork.Clock
	Log         *slog.Logger
}

// NewGateway wires a Gateway.
func NewGateway(d GatewayDeps) *Gateway {
	return &Gateway{
		limiter:     d.Limiter,
		limits:      d.Limits,
		bookings:    d.Bookings,
		messages:    d.Messages,
		subscribers: d.Subscribers,
		notify:      d.Notifier,
		clock:       d.Clock,
		log:         d.Log,
	}
}

// AllowSubmission consumes one slot of the generic submission bucket for
// identity and reports whether it was granted.
func (g *Gateway) AllowSubmission(ctx context.Context, identity string) bool {
	return g.allow(ctx, "submission", identity, g.limits.Booking)
}

func (g *Gateway) allow(ctx context.Context, scope, identity string, r Rule) bool {
	if g.limiter == nil {
		return true
	}
	d := g.limiter.Allow(ctx, scope+":"+identity, r.Limit, r.Window)
	if !d.Allowed {
		g.log.Warn("submission rate limited",
			slog.String("scope", scope),
			slog.String("identity", identity),
			slog.Duration("retry_after", d.RetryAfter),
		)
	}
	return d.Allowed
}

// SubmitBooking stores a new pending booking and returns its reference.
func (g *Gateway) SubmitBooking(ctx context.Context, in BookingInput, identity string) (string, error) {
	if !g.allow(ctx, "booking", identity, g.limits.Booking) {
		return "", ErrRateLimited
	}
	in = trimBooking(in)
	if err := validateStruct(in); err != nil {
		return "", err
	}
	now := g.clock.Now().UTC()
	if in.EventDate < now.Format(dateLayout) {
		return "", NewValidationError("event_date", "must not be in the past")
	}

	b := &model.Booking{
		ID:                  uuid.NewString(),
		ClientName:          in.ClientName,
		ClientEmail:         strings.ToLower(in.ClientEmail),
		ClientPhone:         in.ClientPhone,
		EventName:           in.EventName,
		EventType:           in.EventType,
		EventDate:           in.EventDate,
		StartTime:           in.StartTime,
		EndTime:             in.EndTime,
		Venue:               in.Venue,
		Attendees:           in.Attendees,
		Services:            uniqueServices(in.Services),
		SpecialRequirements: in.SpecialRequirements,
		BudgetRange:         in.BudgetRange,
		ContactChannel:      in.ContactChannel,
		ReferralSource:      in.ReferralSource,
		Status:              model.BookingPending,
		RescheduleHistory:   []model.RescheduleEntry{},
		ActivityLog: []model.ActivityEntry{{
			Action:    model.ActivityCreated,
			Actor:     in.ClientEmail,
			Timestamp: now,
			Detail:    "submitted via booking form",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Company != "" {
		c := in.Company
		b.Company = &c
	}

	err := withFreshReference(func() error {
		b.Reference = NewReference("BK-")
		return g.bookings.Create(ctx, b)
	})
	if err != nil {
		return "", storeError(g.log, "create booking", err)
	}

	g.notify.Dispatch(ctx, model.EventBookingReceivedAdmin, b, nil)
	return b.Reference, nil
}

// SubmitContact stores a new unread message and returns its reference.
func (g *Gateway) SubmitContact(ctx context.Context, in ContactInput, identity string) (string, error) {
	if !g.allow(ctx, "contact", identity, g.limits.Contact) {
		return "", ErrRateLimited
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if err := validateStruct(in); err != nil {
		return "", err
	}

	now := g.clock.Now().UTC()
	m := &model.ContactMessage{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     strings.ToLower(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Subject:   in.Subject,
		Message:   in.Message,
		Service:   in.Service,
		HowHeard:  in.HowHeard,
		Status:    model.MessageUnread,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := withFreshReference(func() error {
		m.Reference = NewReference("MSG-")
		return g.messages.Create(ctx, m)
	})
	if err != nil {
		return "", storeError(g.log, "create message", err)
	}

	g.notify.DispatchContact(ctx, m)
	return m.Reference, nil
}

// Subscribe adds an email to the newsletter.  An address that is already
// confirmed is a duplicate; one that unsubscribed earlier is re-activated.
func (g *Gateway) Subscribe(ctx context.Context, in SubscribeInput, identity string) (*model.Subscriber, error) {
	if !g.allow(ctx, "newsletter", identity, g.limits.Newsletter) {
		return nil, ErrRateLimited
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	now := g.clock.Now().UTC()

	existing, err := g.subscribers.GetByEmail(ctx, in.Email)
	switch {
	case err == nil && existing.Status == model.SubscriberConfirmed:
		return nil, ErrDuplicateEntry
	case err == nil:
		if err := g.subscribers.UpdateStatus(ctx, in.Email, model.SubscriberConfirmed, now); err != nil {
			return nil, storeError(g.log, "resubscribe", err)
		}
		existing.Status = model.SubscriberConfirmed
		existing.UpdatedAt = now
		g.notify.DispatchWelcome(ctx, existing)
		return existing, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeError(g.log, "get subscriber", err)
	}

	s := &model.Subscriber{
		ID:        uuid.NewString(),
		Email:     in.Email,
		Name:      in.Name,
		Status:    model.SubscriberConfirmed,
		Source:    in.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.subscribers.Create(ctx, s); err != nil {
		return nil, storeError(g.log, "create subscriber", err)
	}
	g.notify.DispatchWelcome(ctx, s)
	return s, nil
}

// Unsubscribe marks an address as unsubscribed.  Repeating it is a no-op.
func (g *Gateway) Unsubscribe(ctx context.Context, email, identity string) error {
	if !g.allow(ctx, "newsletter", identity, g.limits.Newsletter) {
		return ErrRateLimited
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return NewValidationError("email", "must be a valid email address")
	}
	s, err := g.subscribers.GetByEmail(ctx, email)
	if err != nil {
		return storeError(g.log, "get subscriber", err)
	}
	if s.Status == model.SubscriberUnsubscribed {
		return nil
	}
	return storeError(g.log, "unsubscribe", g.subscribers.UpdateStatus(ctx, email, model.SubscriberUnsubscribed, g.clock.Now().UTC()))
}

// NewReference returns prefix followed by eight upper-case hex characters.
func NewReference(prefix string) string {
	id := uuid.New()
	return prefix + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// withFreshReference retries create a few times when the generated reference
// collides with an existing one.
func withFreshReference(create func() error) error {
	var err error
	for i := 0; i < 3; i++ {
		if err = create(); !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	}
	return err
}

func trimBooking(in BookingInput) BookingInput {
	for _, p := range []*string{
		&in.ClientName, &in.ClientEmail, &in.ClientPhone, &in.Company, &in.EventName, &in.EventType,
		&in.EventDate, &in.StartTime, &in.EndTime, &in.Venue, &in.SpecialRequirements,
		&in.BudgetRange, &in.ContactChannel, &in.ReferralSource,
	} {
		*p = strings.TrimSpace(*p)
	}
	return in
}

func uniqueServices(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
