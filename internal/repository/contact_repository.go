package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

// ContactRepo stores contact form messages.
type ContactRepo struct {
	db *sql.DB
}

// NewContactRepo returns a ContactRepo bound to db.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

const messageColumns = `id, reference, name, email, phone, subject, message, service, how_heard,
	status, admin_notes, replied_at, created_at, updated_at`

// Create inserts m.
func (r *ContactRepo) Create(ctx context.Context, m *model.ContactMessage) error {
	const q = `INSERT INTO contact_messages (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		m.ID, m.Reference, m.Name, m.Email, m.Phone, m.Subject, m.Message, m.Service, m.HowHeard,
		string(m.Status), m.AdminNotes, m.RepliedAt, m.CreatedAt, m.UpdatedAt,
	)
	return translate(err)
}

// GetByID loads one message.
func (r *ContactRepo) GetByID(ctx context.Context, id string) (*model.ContactMessage, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM contact_messages WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// List returns messages newest first.
func (r *ContactRepo) List(ctx context.Context, f model.MessageFilter) ([]model.ContactMessage, int, error) {
	cond := ""
	args := []any{}
	if f.Status != "" {
		cond = ` WHERE status = ?`
		args = append(args, string(f.Status))
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_messages`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM contact_messages`+cond+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.ContactMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MarkReadIfUnread flips an unread message to read.  It reports whether a
// row changed; a message that is already read, replied or archived is left
// alone.
func (r *ContactRepo) MarkReadIfUnread(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contact_messages SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(model.MessageRead), at, id, string(model.MessageUnread))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatus writes status and replied_at together.
func (r *ContactRepo) UpdateStatus(ctx context.Context, id string, status model.MessageStatus, repliedAt *time.Time, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contact_messages SET status = ?, replied_at = COALESCE(?, replied_at), updated_at = ? WHERE id = ?`,
		string(status), repliedAt, at, id)
	return affectedOne(res, err)
}

// UpdateNotes replaces the admin notes.
func (r *ContactRepo) UpdateNotes(ctx context.Context, id, notes string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contact_messages SET admin_notes = ?, updated_at = ? WHERE id = ?`, notes, at, id)
	return affectedOne(res, err)
}

// Delete removes a message.
func (r *ContactRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = ?`, id)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMessage(row rowScanner) (*model.ContactMessage, error) {
	var (
		m         model.ContactMessage
		status    string
		repliedAt sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.Reference, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Message, &m.Service, &m.HowHeard,
		&status, &m.AdminNotes, &repliedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Status = model.MessageStatus(status)
	if repliedAt.Valid {
		t := repliedAt.Time
		m.RepliedAt = &t
	}
	return &m, nil
}
