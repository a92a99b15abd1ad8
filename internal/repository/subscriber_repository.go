package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

// SubscriberRepo stores newsletter subscribers.  The email column carries a
// unique index, so a racing duplicate insert surfaces as ErrDuplicate.
type SubscriberRepo struct {
	db *sql.DB
}

// NewSubscriberRepo returns a SubscriberRepo bound to db.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

// GetByEmail loads a subscriber by e-mail address.
func (r *SubscriberRepo) GetByEmail(ctx context.Context, email string) (*model.Subscriber, error) {
	var (
		s      model.Subscriber
		status string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, status, source, created_at, updated_at FROM newsletter_subscribers WHERE email = ?`, email,
	).Scan(&s.ID, &s.Email, &s.Name, &status, &s.Source, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	s.Status = model.SubscriberStatus(status)
	return &s, nil
}

// Create inserts s.
func (r *SubscriberRepo) Create(ctx context.Context, s *model.Subscriber) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO newsletter_subscribers (id, email, name, status, source, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Email, s.Name, string(s.Status), s.Source, s.CreatedAt, s.UpdatedAt)
	return translate(err)
}

// UpdateStatus changes the status of the subscriber with the given email.
func (r *SubscriberRepo) UpdateStatus(ctx context.Context, email string, status model.SubscriberStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE newsletter_subscribers SET status = ?, updated_at = ? WHERE email = ?`, string(status), at, email)
	return affectedOne(res, err)
}

// CountByStatus returns how many subscribers are in status.
func (r *SubscriberRepo) CountByStatus(ctx context.Context, status model.SubscriberStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM newsletter_subscribers WHERE status = ?`, string(status)).Scan(&n)
	return n, err
}
