package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/repository"
)

var testNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func newClock() *clockwork.FakeClock { return clockwork.NewFakeClockAt(testNow) }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakeBookings mimics BookingRepo: Mutate is serialised per store the way
// the row lock serialises it per booking.
type fakeBookings struct {
	mu        sync.Mutex
	items     map[string]*model.Booking
	createErr error
	mutateErr error
}

func newFakeBookings(bs ...*model.Booking) *fakeBookings {
	f := &fakeBookings{items: map[string]*model.Booking{}}
	for _, b := range bs {
		f.items[b.ID] = b.Clone()
	}
	return f
}

func (f *fakeBookings) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.items[b.ID] = b.Clone()
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b.Clone(), nil
}

func (f *fakeBookings) List(_ context.Context, flt model.BookingFilter) ([]model.Booking, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Booking{}
	for _, b := range f.items {
		if flt.Status == "" || b.Status == flt.Status {
			out = append(out, *b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeBookings) Mutate(_ context.Context, id string, fn repository.MutateFunc) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	cur, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := cur.Clone()
	m, err := fn(next)
	if err != nil {
		return nil, err
	}
	next.ActivityLog = append(next.ActivityLog, m.Activity)
	if m.Reschedule != nil {
		next.RescheduleHistory = append(next.RescheduleHistory, *m.Reschedule)
	}
	f.items[id] = next
	return next.Clone(), nil
}

func (f *fakeBookings) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeBookings) get(id string) *model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Clone()
}

func (f *fakeBookings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type dispatchCall struct {
	Event     model.NotificationEvent
	BookingID string
	Meta      map[string]string
}

type fakeNotifier struct {
	mu       sync.Mutex
	calls    []dispatchCall
	contacts []*model.ContactMessage
	welcomes []*model.Subscriber
	sent     []dispatchCall
	sendErr  error
}

func (n *fakeNotifier) Dispatch(_ context.Context, ev model.NotificationEvent, b *model.Booking, meta map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, dispatchCall{Event: ev, BookingID: b.ID, Meta: meta})
}

func (n *fakeNotifier) DispatchContact(_ context.Context, m *model.ContactMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contacts = append(n.contacts, m)
}

func (n *fakeNotifier) DispatchWelcome(_ context.Context, s *model.Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, s)
}

func (n *fakeNotifier) Send(_ context.Context, ev model.NotificationEvent, b *model.Booking, meta map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, dispatchCall{Event: ev, BookingID: b.ID, Meta: meta})
	return nil
}

func (n *fakeNotifier) dispatched() []dispatchCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dispatchCall(nil), n.calls...)
}

type fakeMessages struct {
	mu    sync.Mutex
	items map[string]*model.ContactMessage
}

func newFakeMessages() *fakeMessages { return &fakeMessages{items: map[string]*model.ContactMessage{}} }

func (f *fakeMessages) Create(_ context.Context, m *model.ContactMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *m
	f.items[m.ID] = &c
	return nil
}

func (f *fakeMessages) GetByID(_ context.Context, id string) (*model.ContactMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (f *fakeMessages) List(_ context.Context, flt model.MessageFilter) ([]model.ContactMessage, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ContactMessage{}
	for _, m := range f.items {
		if flt.Status == "" || m.Status == flt.Status {
			out = append(out, *m)
		}
	}
	return out, len(out), nil
}

func (f *fakeMessages) MarkReadIfUnread(_ context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok || m.Status != model.MessageUnread {
		return false, nil
	}
	m.Status = model.MessageRead
	m.UpdatedAt = at
	return true, nil
}

func (f *fakeMessages) UpdateStatus(_ context.Context, id string, st model.MessageStatus, repliedAt *time.Time, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status = st
	if repliedAt != nil {
		t := *repliedAt
		m.RepliedAt = &t
	}
	m.UpdatedAt = at
	return nil
}

func (f *fakeMessages) UpdateNotes(_ context.Context, id, notes string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.AdminNotes = notes
	m.UpdatedAt = at
	return nil
}

func (f *fakeMessages) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeSubscribers struct {
	mu        sync.Mutex
	items     map[string]*model.Subscriber
	createErr error
}

func newFakeSubscribers(ss ...*model.Subscriber) *fakeSubscribers {
	f := &fakeSubscribers{items: map[string]*model.Subscriber{}}
	for _, s := range ss {
		c := *s
		f.items[s.Email] = &c
	}
	return f
}

func (f *fakeSubscribers) GetByEmail(_ context.Context, email string) (*model.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeSubscribers) Create(_ context.Context, s *model.Subscriber) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.items[s.Email]; ok {
		return repository.ErrDuplicate
	}
	c := *s
	f.items[s.Email] = &c
	return nil
}

func (f *fakeSubscribers) UpdateStatus(_ context.Context, email string, st model.SubscriberStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[email]
	if !ok {
		return repository.ErrNotFound
	}
	s.Status = st
	s.UpdatedAt = at
	return nil
}

func (f *fakeSubscribers) CountByStatus(_ context.Context, st model.SubscriberStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.items {
		if s.Status == st {
			n++
		}
	}
	return n, nil
}

func (f *fakeSubscribers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeQuotes struct {
	mu    sync.Mutex
	items map[string]*model.Quote
}

func newFakeQuotes() *fakeQuotes { return &fakeQuotes{items: map[string]*model.Quote{}} }

func cloneQuote(q *model.Quote) *model.Quote {
	c := *q
	c.Items = append([]model.QuoteItem(nil), q.Items...)
	return &c
}

func (f *fakeQuotes) Create(_ context.Context, q *model.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[q.ID] = cloneQuote(q)
	return nil
}

func (f *fakeQuotes) Update(_ context.Context, q *model.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[q.ID]; !ok {
		return repository.ErrNotFound
	}
	f.items[q.ID] = cloneQuote(q)
	return nil
}

func (f *fakeQuotes) UpdateStatus(_ context.Context, id string, st model.QuoteStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	q.Status = st
	q.UpdatedAt = at
	return nil
}

func (f *fakeQuotes) GetByID(_ context.Context, id string) (*model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneQuote(q), nil
}

func (f *fakeQuotes) List(_ context.Context, st model.QuoteStatus, _, _ int) ([]model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Quote{}
	for _, q := range f.items {
		if st == "" || q.Status == st {
			out = append(out, *cloneQuote(q))
		}
	}
	return out, nil
}

func (f *fakeQuotes) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

var errBoom = errors.New("connection reset by peer")
