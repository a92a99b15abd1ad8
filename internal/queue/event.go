// Package queue defines the notification payload exchanged over RabbitMQ and
// the publisher and consumer that move it.
package queue

import (
	"time"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

// NotificationMessage is published once per outbound notification.  It
// carries everything the mail worker needs to render and address the
// message without querying the database.
type NotificationMessage struct {
	ID            string                  `json:"id"`
	Event         model.NotificationEvent `json:"event"`
	Recipient     string                  `json:"recipient"`
	RecipientName string                  `json:"recipient_name,omitempty"`
	BookingID     string                  `json:"booking_id,omitempty"`
	Reference     string                  `json:"reference,omitempty"`
	Data          map[string]string       `json:"data,omitempty"`
	OccurredAt    time.Time               `json:"occurred_at"`
}
