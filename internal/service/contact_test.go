package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

func seededInbox(t *testing.T) (*InboxService, *fakeMessages, *fakeSubscribers) {
	t.Helper()
	msgs := newFakeMessages()
	require.NoError(t, msgs.Create(context.Background(), &model.ContactMessage{
		ID: "m1", Reference: "MSG-00000001", Name: "Lee", Email: "lee@example.com",
		Subject: "Pricing", Message: "Do you rent lighting?", Status: model.MessageUnread,
	}))
	subs := newFakeSubscribers(
		&model.Subscriber{ID: "s1", Email: "a@example.com", Status: model.SubscriberConfirmed},
		&model.Subscriber{ID: "s2", Email: "b@example.com", Status: model.SubscriberConfirmed},
		&model.Subscriber{ID: "s3", Email: "c@example.com", Status: model.SubscriberUnsubscribed},
	)
	return NewInboxService(msgs, subs, newClock(), discardLogger()), msgs, subs
}

func TestInboxOpen_MarksReadOnce(t *testing.T) {
	svc, _, _ := seededInbox(t)
	ctx := context.Background()

	m, err := svc.Open(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, model.MessageRead, m.Status)

	_, err = svc.SetStatus(ctx, "m1", model.MessageArchived)
	require.NoError(t, err)

	m, err = svc.Open(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, model.MessageArchived, m.Status, "opening must not downgrade an archived message")

	_, err = svc.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInboxSetStatus_RepliedStampsTime(t *testing.T) {
	svc, _, _ := seededInbox(t)
	ctx := context.Background()

	m, err := svc.SetStatus(ctx, "m1", model.MessageReplied)
	require.NoError(t, err)
	require.NotNil(t, m.RepliedAt)
	assert.Equal(t, testNow, *m.RepliedAt)

	m, err = svc.SetStatus(ctx, "m1", model.MessageArchived)
	require.NoError(t, err)
	require.NotNil(t, m.RepliedAt, "archiving keeps the reply timestamp")
	assert.True(t, m.RepliedAt.Equal(testNow))

	_, err = svc.SetStatus(ctx, "m1", "spam")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInboxNotesAndDelete(t *testing.T) {
	svc, _, _ := seededInbox(t)
	ctx := context.Background()

	m, err := svc.SetNotes(ctx, "m1", "quoted on the phone")
	require.NoError(t, err)
	assert.Equal(t, "quoted on the phone", m.AdminNotes)
	assert.Equal(t, testNow, m.UpdatedAt.In(time.UTC))

	require.NoError(t, svc.Delete(ctx, "m1"))
	assert.ErrorIs(t, svc.Delete(ctx, "m1"), ErrNotFound)
}

func TestInboxList(t *testing.T) {
	svc, _, _ := seededInbox(t)
	out, total, err := svc.List(context.Background(), model.MessageFilter{Status: model.MessageUnread})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, out, 1)

	_, _, err = svc.List(context.Background(), model.MessageFilter{Status: "spam"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubscriberCounts(t *testing.T) {
	svc, _, _ := seededInbox(t)
	counts, err := svc.SubscriberCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.SubscriberConfirmed])
	assert.Equal(t, 1, counts[model.SubscriberUnsubscribed])
}
