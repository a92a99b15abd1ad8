package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending     BookingStatus = "pending"
	BookingReviewing   BookingStatus = "reviewing"
	BookingConfirmed   BookingStatus = "confirmed"
	BookingCompleted   BookingStatus = "completed"
	BookingRejected    BookingStatus = "rejected"
	BookingRescheduled BookingStatus = "rescheduled"
	BookingCancelled   BookingStatus = "cancelled"
)

// BookingStatuses lists every known status in lifecycle order.
var BookingStatuses = []BookingStatus{
	BookingPending, BookingReviewing, BookingConfirmed, BookingCompleted,
	BookingRejected, BookingRescheduled, BookingCancelled,
}

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	for _, v := range BookingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingRejected || s == BookingCancelled
}

// Activity actions recorded in a booking's activity log.
const (
	ActivityCreated            = "created"
	ActivityStatusChanged      = "status_changed"
	ActivityRescheduled        = "rescheduled"
	ActivityDetailsUpdated     = "details_updated"
	ActivityNotificationResent = "notification_resent"
)

// Booking is a prospective or confirmed engagement submitted through the
// public booking form and managed from the back office.
//
// Fields:
//
//	ID, Reference        – opaque id and the human readable code given to
//	                       the client; both immutable.
//	Client*, Company     – who is booking; changed only by an admin edit.
//	Event*, Venue, ...   – what is being booked.
//	Status               – lifecycle state, see BookingStatus.
//	InternalNotes        – admin only, never sent to the client.
//	AssignedTo           – free text team member label.
//	RescheduleHistory    – append only, oldest first.
//	ActivityLog          – append only, oldest first.
type Booking struct {
	ID                  string            `json:"id"`
	Reference           string            `json:"reference"`
	ClientName          string            `json:"client_name"`
	ClientEmail         string            `json:"client_email"`
	ClientPhone         string            `json:"client_phone"`
	Company             *string           `json:"company,omitempty"`
	EventName           string            `json:"event_name"`
	EventType           string            `json:"event_type"`
	EventDate           string            `json:"event_date"` // YYYY-MM-DD
	StartTime           string            `json:"start_time"` // HH:MM
	EndTime             string            `json:"end_time"`   // HH:MM
	Venue               string            `json:"venue"`
	Attendees           int               `json:"attendees"`
	Services            []string          `json:"services"`
	SpecialRequirements string            `json:"special_requirements,omitempty"`
	BudgetRange         string            `json:"budget_range,omitempty"`
	ContactChannel      string            `json:"contact_channel,omitempty"`
	ReferralSource      string            `json:"referral_source,omitempty"`
	Status              BookingStatus     `json:"status"`
	InternalNotes       string            `json:"internal_notes,omitempty"`
	AssignedTo          string            `json:"assigned_to,omitempty"`
	RescheduleHistory   []RescheduleEntry `json:"reschedule_history"`
	ActivityLog         []ActivityEntry   `json:"activity_log"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// RescheduleEntry records one move of the event date.
type RescheduleEntry struct {
	FromDate  string    `json:"from_date"`
	ToDate    string    `json:"to_date"`
	FromTime  string    `json:"from_time,omitempty"`
	ToTime    string    `json:"to_time,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
}

// ActivityEntry is one line of a booking's audit trail.
type ActivityEntry struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// Clone returns a deep copy so callers can mutate it without touching the
// original slices.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	if b.Company != nil {
		c := *b.Company
		out.Company = &c
	}
	out.Services = append([]string(nil), b.Services...)
	out.RescheduleHistory = append([]RescheduleEntry(nil), b.RescheduleHistory...)
	out.ActivityLog = append([]ActivityEntry(nil), b.ActivityLog...)
	return &out
}

// BookingFilter narrows an admin booking listing.
type BookingFilter struct {
	Status BookingStatus
	Search string // matched against reference, client name, email and event name
	Limit  int
	Offset int
}
