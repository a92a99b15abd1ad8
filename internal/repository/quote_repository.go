package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

// QuoteRepo stores quotes and their ordered line items.  The derived totals
// are denormalised into the quotes row; callers recompute them before every
// write.
type QuoteRepo struct {
	db *sql.DB
}

// NewQuoteRepo returns a QuoteRepo bound to db.
func NewQuoteRepo(db *sql.DB) *QuoteRepo { return &QuoteRepo{db: db} }

const quoteColumns = `id, quote_number, booking_id, client_name, client_email, discount_pct, tax_pct,
	notes, payment_terms, issue_date, valid_until, status, subtotal, discount_amount, tax_amount, total,
	created_at, updated_at`

// Create inserts q and its items.
func (r *QuoteRepo) Create(ctx context.Context, q *model.Quote) error {
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

	const ins = `INSERT INTO quotes (` + quoteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins,
		q.ID, q.QuoteNumber, q.BookingID, q.ClientName, q.ClientEmail, q.DiscountPct, q.TaxPct,
		q.Notes, q.PaymentTerms, q.IssueDate, q.ValidUntil, string(q.Status),
		q.Subtotal, q.DiscountAmount, q.TaxAmount, q.Total, q.CreatedAt, q.UpdatedAt,
	); err != nil {
		return translate(err)
	}
	if err := insertItems(ctx, tx, q.ID, q.Items); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Update rewrites the commercial fields of q and replaces its items.
func (r *QuoteRepo) Update(ctx context.Context, q *model.Quote) error {
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

	const upd = `UPDATE quotes SET booking_id = ?, client_name = ?, client_email = ?, discount_pct = ?, tax_pct = ?,
		notes = ?, payment_terms = ?, issue_date = ?, valid_until = ?, status = ?,
		subtotal = ?, discount_amount = ?, tax_amount = ?, total = ?, updated_at = ?
		WHERE id = ?`
	res, err := tx.ExecContext(ctx, upd,
		q.BookingID, q.ClientName, q.ClientEmail, q.DiscountPct, q.TaxPct,
		q.Notes, q.PaymentTerms, q.IssueDate, q.ValidUntil, string(q.Status),
		q.Subtotal, q.DiscountAmount, q.TaxAmount, q.Total, q.UpdatedAt,
		q.ID,
	)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quote_items WHERE quote_id = ?`, q.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, q.ID, q.Items); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateStatus sets the status column only.
func (r *QuoteRepo) UpdateStatus(ctx context.Context, id string, status model.QuoteStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE quotes SET status = ?, updated_at = ? WHERE id = ?`, string(status), at, id)
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

// GetByID loads a quote and its items in position order.
func (r *QuoteRepo) GetByID(ctx context.Context, id string) (*model.Quote, error) {
	q, err := scanQuote(r.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT description, quantity, unit_price FROM quote_items WHERE quote_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	q.Items = []model.QuoteItem{}
	for rows.Next() {
		var it model.QuoteItem
		if err := rows.Scan(&it.Description, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q, nil
}

// List returns quotes newest first, without items.
func (r *QuoteRepo) List(ctx context.Context, status model.QuoteStatus, limit, offset int) ([]model.Quote, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + quoteColumns + ` FROM quotes`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Quote{}
	for rows.Next() {
		qt, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *qt)
	}
	return out, rows.Err()
}

// Delete removes a quote and its items.
func (r *QuoteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id)
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

func insertItems(ctx context.Context, tx *sql.Tx, quoteID string, items []model.QuoteItem) error {
	const ins = `INSERT INTO quote_items (quote_id, position, description, quantity, unit_price) VALUES (?, ?, ?, ?, ?)`
	for i, it := range items {
		if _, err := tx.ExecContext(ctx, ins, quoteID, i, it.Description, it.Quantity, it.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

func scanQuote(row rowScanner) (*model.Quote, error) {
	var (
		q          model.Quote
		bookingID  sql.NullString
		issueDate  time.Time
		validUntil sql.NullTime
		status     string
	)
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &bookingID, &q.ClientName, &q.ClientEmail, &q.DiscountPct, &q.TaxPct,
		&q.Notes, &q.PaymentTerms, &issueDate, &validUntil, &status,
		&q.Subtotal, &q.DiscountAmount, &q.TaxAmount, &q.Total, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if bookingID.Valid {
		id := bookingID.String
		q.BookingID = &id
	}
	q.IssueDate = issueDate.Format(dateLayout)
	if validUntil.Valid {
		v := validUntil.Time.Format(dateLayout)
		q.ValidUntil = &v
	}
	q.Status = model.QuoteStatus(status)
	return &q, nil
}
