package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/iliyamo/avstage-backoffice/internal/config"
	"github.com/iliyamo/avstage-backoffice/internal/queue"
)

// Mailer delivers one rendered e-mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer builds a mailer from cfg.  Credentials are optional; when
// Username is empty no SMTP AUTH is attempted.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: c, from: cfg.From}, nil
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return m.client.DialAndSendWithContext(ctx, msg)
}

// ErrNoRecipient is returned for messages without an address, typically an
// admin alert when no admin e-mail is configured.
var ErrNoRecipient = errors.New("notification has no recipient")

// MailHandler renders queued notifications and sends them.  It is the
// queue.Handler run by the notifier worker.
type MailHandler struct {
	mailer  Mailer
	log     *slog.Logger
	timeout time.Duration
}

// NewMailHandler returns a MailHandler.
func NewMailHandler(m Mailer, log *slog.Logger, timeout time.Duration) *MailHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MailHandler{mailer: m, log: log, timeout: timeout}
}

// Handle implements queue.Handler.
func (h *MailHandler) Handle(ctx context.Context, msg queue.NotificationMessage) error {
	if msg.Recipient == "" {
		return ErrNoRecipient
	}
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.mailer.Send(ctx, msg.Recipient, subject, body); err != nil {
		return err
	}
	h.log.Info("notification sent",
		slog.String("event", string(msg.Event)),
		slog.String("booking_id", msg.BookingID),
		slog.String("message_id", msg.ID),
	)
	return nil
}
