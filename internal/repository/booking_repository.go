package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

const dateLayout = "2006-01-02"

// BookingMutation is what a MutateFunc asks the repository to append next to
// the updated booking row.  Both appends happen in the same transaction as
// the row update.
type BookingMutation struct {
	Activity   model.ActivityEntry
	Reschedule *model.RescheduleEntry
}

// MutateFunc receives a copy of the locked booking, changes it in place and
// returns the audit entries to append.  Returning an error rolls back.
type MutateFunc func(b *model.Booking) (BookingMutation, error)

// BookingRepo stores bookings together with their activity log
// (booking_activity) and reschedule history (booking_reschedules).  Log
// entries are separate rows so concurrent appends on one booking never
// overwrite each other.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, reference, client_name, client_email, client_phone, company,
	event_name, event_type, event_date, start_time, end_time, venue, attendees, services,
	special_requirements, budget_range, contact_channel, referral_source,
	status, internal_notes, assigned_to, created_at, updated_at`

// Create inserts b together with its initial activity entries.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	services, err := json.Marshal(nonNil(b.Services))
	if err != nil {
		return fmt.Errorf("encode services: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q,
		b.ID, b.Reference, b.ClientName, b.ClientEmail, b.ClientPhone, b.Company,
		b.EventName, b.EventType, b.EventDate, b.StartTime, b.EndTime, b.Venue, b.Attendees, services,
		b.SpecialRequirements, b.BudgetRange, b.ContactChannel, b.ReferralSource,
		string(b.Status), b.InternalNotes, b.AssignedTo, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}
	for _, a := range b.ActivityLog {
		if err := insertActivity(ctx, tx, b.ID, a); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID loads a booking with both logs.  ErrNotFound when absent.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err)
	}
	if err := loadLogs(ctx, r.db, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByReference loads a booking by its public reference code.
func (r *BookingRepo) GetByReference(ctx context.Context, ref string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, ref))
	if err != nil {
		return nil, translate(err)
	}
	if err := loadLogs(ctx, r.db, b); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns bookings newest first together with the total number of rows
// matching the filter.  Logs are not loaded.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 6)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		where = append(where, "(reference LIKE ? OR client_name LIKE ? OR client_email LIKE ? OR event_name LIKE ?)")
		args = append(args, like, like, like, like)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`+cond, args...).Scan(&total); err != nil {
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
	q := `SELECT ` + bookingColumns + ` FROM bookings` + cond + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0, limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Mutate locks the booking row, lets fn change a copy of it and writes the
// result back with the audit entries fn returned, all in one transaction.
func (r *BookingRepo) Mutate(ctx context.Context, id string, fn MutateFunc) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err)
	}
	if err := loadLogs(ctx, tx, cur); err != nil {
		return nil, err
	}

	next := cur.Clone()
	m, err := fn(next)
	if err != nil {
		return nil, err
	}

	const upd = `UPDATE bookings SET client_name = ?, client_email = ?, client_phone = ?, company = ?,
		event_date = ?, start_time = ?, end_time = ?, status = ?, internal_notes = ?, assigned_to = ?, updated_at = ?
		WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd,
		next.ClientName, next.ClientEmail, next.ClientPhone, next.Company,
		next.EventDate, next.StartTime, next.EndTime, string(next.Status), next.InternalNotes, next.AssignedTo, next.UpdatedAt,
		id,
	); err != nil {
		return nil, translate(err)
	}
	if err := insertActivity(ctx, tx, id, m.Activity); err != nil {
		return nil, err
	}
	if m.Reschedule != nil {
		const ins = `INSERT INTO booking_reschedules (booking_id, from_date, to_date, from_time, to_time, reason, actor, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		rs := m.Reschedule
		if _, err := tx.ExecContext(ctx, ins, id, rs.FromDate, rs.ToDate, rs.FromTime, rs.ToTime, rs.Reason, rs.Actor, rs.Timestamp); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	next.ActivityLog = append(next.ActivityLog, m.Activity)
	if m.Reschedule != nil {
		next.RescheduleHistory = append(next.RescheduleHistory, *m.Reschedule)
	}
	return next, nil
}

// Delete removes a booking; its log rows go with it (ON DELETE CASCADE).
func (r *BookingRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
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

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertActivity(ctx context.Context, tx execer, bookingID string, a model.ActivityEntry) error {
	const q = `INSERT INTO booking_activity (booking_id, action, actor, detail, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, bookingID, a.Action, a.Actor, a.Detail, a.Timestamp)
	return err
}

func loadLogs(ctx context.Context, db querier, b *model.Booking) error {
	rows, err := db.QueryContext(ctx,
		`SELECT action, actor, detail, created_at FROM booking_activity WHERE booking_id = ? ORDER BY id`, b.ID)
	if err != nil {
		return err
	}
	b.ActivityLog = []model.ActivityEntry{}
	for rows.Next() {
		var a model.ActivityEntry
		if err := rows.Scan(&a.Action, &a.Actor, &a.Detail, &a.Timestamp); err != nil {
			rows.Close()
			return err
		}
		b.ActivityLog = append(b.ActivityLog, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = db.QueryContext(ctx,
		`SELECT from_date, to_date, from_time, to_time, reason, actor, created_at FROM booking_reschedules WHERE booking_id = ? ORDER BY id`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	b.RescheduleHistory = []model.RescheduleEntry{}
	for rows.Next() {
		var (
			rs       model.RescheduleEntry
			from, to time.Time
		)
		if err := rows.Scan(&from, &to, &rs.FromTime, &rs.ToTime, &rs.Reason, &rs.Actor, &rs.Timestamp); err != nil {
			return err
		}
		rs.FromDate = from.Format(dateLayout)
		rs.ToDate = to.Format(dateLayout)
		b.RescheduleHistory = append(b.RescheduleHistory, rs)
	}
	return rows.Err()
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b         model.Booking
		company   sql.NullString
		eventDate time.Time
		services  []byte
		status    string
	)
	err := row.Scan(
		&b.ID, &b.Reference, &b.ClientName, &b.ClientEmail, &b.ClientPhone, &company,
		&b.EventName, &b.EventType, &eventDate, &b.StartTime, &b.EndTime, &b.Venue, &b.Attendees, &services,
		&b.SpecialRequirements, &b.BudgetRange, &b.ContactChannel, &b.ReferralSource,
		&status, &b.InternalNotes, &b.AssignedTo, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if company.Valid {
		c := company.String
		b.Company = &c
	}
	b.EventDate = eventDate.Format(dateLayout)
	b.Status = model.BookingStatus(status)
	b.Services = []string{}
	if len(services) > 0 {
		if err := json.Unmarshal(services, &b.Services); err != nil {
			return nil, fmt.Errorf("decode services: %w", err)
		}
	}
	return &b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
