package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/ratelimit"
	"github.com/iliyamo/avstage-backoffice/internal/repository"
)

type gatewayFixture struct {
	gw          *Gateway
	bookings    *fakeBookings
	messages    *fakeMessages
	subscribers *fakeSubscribers
	notifier    *fakeNotifier
	limiter     *ratelimit.MemoryStore
}

func newGatewayFixture(t *testing.T, subs ...*model.Subscriber) *gatewayFixture {
	t.Helper()
	clock := newClock()
	f := &gatewayFixture{
		bookings:    newFakeBookings(),
		messages:    newFakeMessages(),
		subscribers: newFakeSubscribers(subs...),
		notifier:    &fakeNotifier{},
		limiter:     ratelimit.NewMemoryStore(clock, 0),
	}
	t.Cleanup(f.limiter.Stop)
	f.gw = NewGateway(GatewayDeps{
		Limiter: f.limiter,
		Limits: Limits{
			Booking:    Rule{Limit: 2, Window: time.Hour},
			Contact:    Rule{Limit: 2, Window: time.Hour},
			Newsletter: Rule{Limit: 3, Window: time.Hour},
		},
		Bookings:    f.bookings,
		Messages:    f.messages,
		Subscribers: f.subscribers,
		Notifier:    f.notifier,
		Clock:       clock,
		Log:         discardLogger(),
	})
	return f
}

func validBooking() BookingInput {
	return BookingInput{
		ClientName:  "Dana Kim",
		ClientEmail: "Dana@Example.com",
		ClientPhone: "+1 555 0100",
		Company:     " Acme ",
		EventName:   "Product launch",
		EventType:   "corporate",
		EventDate:   "2026-11-20",
		StartTime:   "18:00",
		EndTime:     "22:00",
		Venue:       "Hall A",
		Attendees:   150,
		Services:    []string{"sound", "lighting", "sound"},
	}
}

func TestSubmitBooking_CreatesPendingBooking(t *testing.T) {
	f := newGatewayFixture(t)

	ref, err := f.gw.SubmitBooking(context.Background(), validBooking(), "203.0.113.7")
	require.NoError(t, err)
	assert.Regexp(t, `^BK-[0-9A-F]{8}$`, ref)

	out, total, err := f.bookings.List(context.Background(), model.BookingFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	b := out[0]
	assert.Equal(t, ref, b.Reference)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, "dana@example.com", b.ClientEmail)
	assert.Equal(t, []string{"sound", "lighting"}, b.Services)
	require.NotNil(t, b.Company)
	assert.Equal(t, "Acme", *b.Company)
	require.Len(t, b.ActivityLog, 1)
	assert.Equal(t, model.ActivityCreated, b.ActivityLog[0].Action)
	assert.Equal(t, testNow, b.CreatedAt)

	calls := f.notifier.dispatched()
	require.Len(t, calls, 1)
	assert.Equal(t, model.EventBookingReceivedAdmin, calls[0].Event)
}

func TestSubmitBooking_RateLimitedHasNoSideEffects(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.gw.SubmitBooking(ctx, validBooking(), "203.0.113.7")
		require.NoError(t, err)
	}
	_, err := f.gw.SubmitBooking(ctx, validBooking(), "203.0.113.7")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, f.bookings.count())
	assert.Len(t, f.notifier.dispatched(), 2)

	// Another client has its own bucket.
	_, err = f.gw.SubmitBooking(ctx, validBooking(), "198.51.100.1")
	assert.NoError(t, err)
}

func TestSubmitBooking_Validation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*BookingInput)
		field string
	}{
		{"missing name", func(in *BookingInput) { in.ClientName = " " }, "client_name"},
		{"bad email", func(in *BookingInput) { in.ClientEmail = "dana" }, "client_email"},
		{"bad date format", func(in *BookingInput) { in.EventDate = "20/11/2026" }, "event_date"},
		{"date in the past", func(in *BookingInput) { in.EventDate = "2026-10-14" }, "event_date"},
		{"bad start time", func(in *BookingInput) { in.StartTime = "6pm" }, "start_time"},
		{"no attendees", func(in *BookingInput) { in.Attendees = 0 }, "attendees"},
		{"no services", func(in *BookingInput) { in.Services = nil }, "services"},
		{"blank service", func(in *BookingInput) { in.Services = []string{"sound", ""} }, "services[1]"},
		{"unknown channel", func(in *BookingInput) { in.ContactChannel = "fax" }, "contact_channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatewayFixture(t)
			in := validBooking()
			tt.edit(&in)

			_, err := f.gw.SubmitBooking(context.Background(), in, "203.0.113.7")
			require.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.NotEmpty(t, ve.Message)
			assert.Equal(t, 0, f.bookings.count())
		})
	}
}

func TestSubmitBooking_TodayIsAllowed(t *testing.T) {
	f := newGatewayFixture(t)
	in := validBooking()
	in.EventDate = "2026-10-15"
	_, err := f.gw.SubmitBooking(context.Background(), in, "203.0.113.7")
	assert.NoError(t, err)
}

func TestSubmitBooking_PersistenceFailureIsGeneric(t *testing.T) {
	f := newGatewayFixture(t)
	f.bookings.createErr = errBoom

	_, err := f.gw.SubmitBooking(context.Background(), validBooking(), "203.0.113.7")
	require.ErrorIs(t, err, ErrPersistence)
	assert.NotContains(t, err.Error(), errBoom.Error())
	assert.Empty(t, f.notifier.dispatched())
}

func TestSubmitContact(t *testing.T) {
	f := newGatewayFixture(t)

	ref, err := f.gw.SubmitContact(context.Background(), ContactInput{
		Name:    "Lee",
		Email:   "lee@example.com",
		Subject: "Pricing",
		Message: "Do you rent stage lighting by the day?",
	}, "203.0.113.7")
	require.NoError(t, err)
	assert.Regexp(t, `^MSG-[0-9A-F]{8}$`, ref)

	out, total, err := f.messages.List(context.Background(), model.MessageFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, model.MessageUnread, out[0].Status)
	assert.Len(t, f.notifier.contacts, 1)

	_, err = f.gw.SubmitContact(context.Background(), ContactInput{Name: "Lee", Email: "lee@example.com", Subject: "Hi", Message: "short"}, "203.0.113.7")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "message", ve.Field)
}

func TestSubscribe(t *testing.T) {
	confirmed := &model.Subscriber{ID: "s1", Email: "taken@example.com", Status: model.SubscriberConfirmed}
	gone := &model.Subscriber{ID: "s2", Email: "gone@example.com", Status: model.SubscriberUnsubscribed}

	t.Run("new address", func(t *testing.T) {
		f := newGatewayFixture(t)
		s, err := f.gw.Subscribe(context.Background(), SubscribeInput{Email: " New@Example.com "}, "ip")
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", s.Email)
		assert.Equal(t, model.SubscriberConfirmed, s.Status)
		assert.Equal(t, 1, f.subscribers.count())
		assert.Len(t, f.notifier.welcomes, 1)
	})

	t.Run("confirmed address is a duplicate", func(t *testing.T) {
		f := newGatewayFixture(t, confirmed)
		_, err := f.gw.Subscribe(context.Background(), SubscribeInput{Email: "taken@example.com"}, "ip")
		assert.ErrorIs(t, err, ErrDuplicateEntry)
		assert.Equal(t, 1, f.subscribers.count())
		assert.Empty(t, f.notifier.welcomes)
	})

	t.Run("unsubscribed address is re-activated", func(t *testing.T) {
		f := newGatewayFixture(t, gone)
		s, err := f.gw.Subscribe(context.Background(), SubscribeInput{Email: "gone@example.com"}, "ip")
		require.NoError(t, err)
		assert.Equal(t, "s2", s.ID)
		assert.Equal(t, model.SubscriberConfirmed, s.Status)
		assert.Equal(t, 1, f.subscribers.count())
	})

	t.Run("racing insert is a duplicate", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.subscribers.createErr = repository.ErrDuplicate
		_, err := f.gw.Subscribe(context.Background(), SubscribeInput{Email: "race@example.com"}, "ip")
		assert.ErrorIs(t, err, ErrDuplicateEntry)
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newGatewayFixture(t)
		for i := 0; i < 3; i++ {
			_, _ = f.gw.Subscribe(context.Background(), SubscribeInput{Email: "x@example.com"}, "ip")
		}
		_, err := f.gw.Subscribe(context.Background(), SubscribeInput{Email: "y@example.com"}, "ip")
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, 1, f.subscribers.count())
	})
}

func TestUnsubscribe(t *testing.T) {
	f := newGatewayFixture(t, &model.Subscriber{ID: "s1", Email: "a@example.com", Status: model.SubscriberConfirmed})
	ctx := context.Background()

	require.NoError(t, f.gw.Unsubscribe(ctx, "A@example.com", "ip"))
	s, err := f.subscribers.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriberUnsubscribed, s.Status)

	assert.NoError(t, f.gw.Unsubscribe(ctx, "a@example.com", "ip"))
	assert.ErrorIs(t, f.gw.Unsubscribe(ctx, "nobody@example.com", "ip"), ErrNotFound)
}

func TestAllowSubmission(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	assert.True(t, f.gw.AllowSubmission(ctx, "ip"))
	assert.True(t, f.gw.AllowSubmission(ctx, "ip"))
	assert.False(t, f.gw.AllowSubmission(ctx, "ip"))

	// The probe does not spend the booking form's bucket.
	_, err := f.gw.SubmitBooking(ctx, validBooking(), "ip")
	assert.NoError(t, err)
}

func TestNewReference(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref := NewReference("BK-")
		assert.Regexp(t, `^BK-[0-9A-F]{8}$`, ref)
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestGateway_NilLimiterAllowsEverything(t *testing.T) {
	gw := NewGateway(GatewayDeps{
		Limits:      Limits{Booking: Rule{Limit: 1, Window: time.Hour}},
		Bookings:    newFakeBookings(),
		Messages:    newFakeMessages(),
		Subscribers: newFakeSubscribers(),
		Notifier:    &fakeNotifier{},
		Clock:       newClock(),
		Log:         discardLogger(),
	})
	for i := 0; i < 3; i++ {
		_, err := gw.SubmitBooking(context.Background(), validBooking(), "ip")
		require.NoError(t, err)
		assert.True(t, gw.AllowSubmission(context.Background(), "ip"))
	}
}
