package model

// NotificationEvent names an outbound notification.
type NotificationEvent string

const (
	EventBookingCreated     NotificationEvent = "booking_created"
	EventBookingConfirmed   NotificationEvent = "booking_confirmed"
	EventBookingCancelled   NotificationEvent = "booking_cancelled"
	EventBookingCompleted   NotificationEvent = "booking_completed"
	EventBookingRescheduled NotificationEvent = "booking_rescheduled"

	// Admin alerts and non-booking mail.
	EventBookingReceivedAdmin NotificationEvent = "booking_received_admin"
	EventContactReceived      NotificationEvent = "contact_received"
	EventNewsletterWelcome    NotificationEvent = "newsletter_welcome"
)

// ClientBookingEvents are the events an admin may resend for a booking.
var ClientBookingEvents = []NotificationEvent{
	EventBookingCreated, EventBookingConfirmed, EventBookingCancelled,
	EventBookingCompleted, EventBookingRescheduled,
}

// Resendable reports whether e may be re-triggered for a booking.
func (e NotificationEvent) Resendable() bool {
	for _, v := range ClientBookingEvents {
		if v == e {
			return true
		}
	}
	return false
}
