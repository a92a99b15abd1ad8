package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/queue"
)

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) mailTemplate {
	return mailTemplate{
		subject: template.Must(template.New(name + ".subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Option("missingkey=zero").Parse(body)),
	}
}

var templates = map[model.NotificationEvent]mailTemplate{
	model.EventBookingCreated: mustTemplate("booking_created",
		`We received your booking {{.Data.reference}}`,
		`Hello {{.RecipientName}},

Thank you for your enquiry about "{{.Data.event_name}}" on {{.Data.event_date}} at {{.Data.venue}}.
Your reference is {{.Data.reference}}. Our team is reviewing the details and will be in touch shortly.
`),
	model.EventBookingConfirmed: mustTemplate("booking_confirmed",
		`Booking {{.Data.reference}} confirmed`,
		`Hello {{.RecipientName}},

Your booking for "{{.Data.event_name}}" on {{.Data.event_date}} ({{.Data.start_time}}-{{.Data.end_time}}) is confirmed.
`),
	model.EventBookingCancelled: mustTemplate("booking_cancelled",
		`Booking {{.Data.reference}} cancelled`,
		`Hello {{.RecipientName}},

Your booking for "{{.Data.event_name}}" on {{.Data.event_date}} has been cancelled.
{{with .Data.reason}}Reason: {{.}}
{{end}}`),
	model.EventBookingCompleted: mustTemplate("booking_completed",
		`Thank you for choosing us, {{.RecipientName}}`,
		`Hello {{.RecipientName}},

"{{.Data.event_name}}" is complete. Thank you for working with us.
`),
	model.EventBookingRescheduled: mustTemplate("booking_rescheduled",
		`Booking {{.Data.reference}} rescheduled`,
		`Hello {{.RecipientName}},

"{{.Data.event_name}}" has moved from {{.Data.old_date}} to {{.Data.event_date}}{{with .Data.start_time}} at {{.}}{{end}}.
{{with .Data.reason}}Reason: {{.}}
{{end}}`),
	model.EventBookingReceivedAdmin: mustTemplate("booking_received_admin",
		`New booking {{.Data.reference}}: {{.Data.event_name}}`,
		`{{.Data.client_name}} <{{.Data.client_email}}> requested "{{.Data.event_name}}" ({{.Data.event_type}})
on {{.Data.event_date}} {{.Data.start_time}}-{{.Data.end_time}} at {{.Data.venue}}.
`),
	model.EventContactReceived: mustTemplate("contact_received",
		`New message {{.Data.reference}}: {{.Data.subject}}`,
		`From: {{.Data.name}} <{{.Data.email}}>

{{.Data.message}}
`),
	model.EventNewsletterWelcome: mustTemplate("newsletter_welcome",
		`Welcome to our newsletter`,
		`Hello{{with .RecipientName}} {{.}}{{end}},

You are now subscribed. You can unsubscribe at any time.
`),
}

// Render produces the subject and plain-text body for msg.
func Render(msg queue.NotificationMessage) (subject, body string, err error) {
	t, ok := templates[msg.Event]
	if !ok {
		return "", "", fmt.Errorf("no template for event %q", msg.Event)
	}
	var s, b bytes.Buffer
	if err := t.subject.Execute(&s, msg); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := t.body.Execute(&b, msg); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return s.String(), b.String(), nil
}
