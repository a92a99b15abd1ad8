package model

import "time"

// MessageStatus tracks an inbound inquiry through the admin inbox.
type MessageStatus string

const (
	MessageUnread   MessageStatus = "unread"
	MessageRead     MessageStatus = "read"
	MessageReplied  MessageStatus = "replied"
	MessageArchived MessageStatus = "archived"
)

// Valid reports whether s is a known message status.
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageUnread, MessageRead, MessageReplied, MessageArchived:
		return true
	}
	return false
}

// ContactMessage is an inquiry submitted through the public contact form.
// RepliedAt is set whenever the message enters MessageReplied.
type ContactMessage struct {
	ID         string        `json:"id"`
	Reference  string        `json:"reference"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone,omitempty"`
	Subject    string        `json:"subject"`
	Message    string        `json:"message"`
	Service    string        `json:"service,omitempty"`
	HowHeard   string        `json:"how_heard,omitempty"`
	Status     MessageStatus `json:"status"`
	AdminNotes string        `json:"admin_notes,omitempty"`
	RepliedAt  *time.Time    `json:"replied_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// MessageFilter narrows the admin inbox listing.
type MessageFilter struct {
	Status MessageStatus
	Limit  int
	Offset int
}

// SubscriberStatus is the state of a newsletter subscription.
type SubscriberStatus string

const (
	SubscriberConfirmed    SubscriberStatus = "confirmed"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber is a newsletter recipient.  Email is unique.
type Subscriber struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name,omitempty"`
	Status    SubscriberStatus `json:"status"`
	Source    string           `json:"source,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
