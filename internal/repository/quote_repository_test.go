package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

func sampleQuote() *model.Quote {
	return &model.Quote{
		ID: "q1", QuoteNumber: "Q-20261015-AB12", ClientName: "Dana", ClientEmail: "dana@example.com",
		Items: []model.QuoteItem{
			{Description: "PA", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
			{Description: "Lights", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
		},
		IssueDate: "2026-10-15", Status: model.QuoteDraft, CreatedAt: ts, UpdatedAt: ts,
	}
}

func TestQuoteRepo_CreateWritesItemsInOrder(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO quotes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO quote_items").WithArgs("q1", 0, "PA", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO quote_items").WithArgs("q1", 1, "Lights", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewQuoteRepo(db).Create(context.Background(), sampleQuote()))
}

func TestQuoteRepo_UpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE quotes SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, NewQuoteRepo(db).Update(context.Background(), sampleQuote()), ErrNotFound)
}

func TestQuoteRepo_UpdateReplacesItems(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE quotes SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM quote_items").WithArgs("q1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO quote_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO quote_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewQuoteRepo(db).Update(context.Background(), sampleQuote()))
}

func TestQuoteRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("FROM quotes WHERE id = \\?").WithArgs("q1").WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "quote_number", "booking_id", "client_name", "client_email", "discount_pct", "tax_pct",
			"notes", "payment_terms", "issue_date", "valid_until", "status",
			"subtotal", "discount_amount", "tax_amount", "total", "created_at", "updated_at",
		}).AddRow(
			"q1", "Q-20261015-AB12", nil, "Dana", "dana@example.com", "10.00", "16.00",
			"", "", ts, nil, "sent",
			"200.00", "20.00", "28.80", "208.80", ts, ts,
		))
	mock.ExpectQuery("FROM quote_items").WithArgs("q1").WillReturnRows(
		sqlmock.NewRows([]string{"description", "quantity", "unit_price"}).AddRow("PA", "2.00", "100.00"))

	q, err := NewQuoteRepo(db).GetByID(context.Background(), "q1")
	require.NoError(t, err)
	assert.Nil(t, q.BookingID)
	assert.Nil(t, q.ValidUntil)
	assert.Equal(t, "2026-10-15", q.IssueDate)
	assert.Equal(t, model.QuoteSent, q.Status)
	assert.True(t, decimal.RequireFromString("208.8").Equal(q.Total))
	require.Len(t, q.Items, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(q.Items[0].UnitPrice))
}

func TestQuoteRepo_StatusAndDelete(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE quotes SET status").WithArgs("accepted", ts, "q1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM quotes").WithArgs("q9").WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewQuoteRepo(db)
	assert.NoError(t, r.UpdateStatus(context.Background(), "q1", model.QuoteAccepted, ts))
	assert.ErrorIs(t, r.Delete(context.Background(), "q9"), ErrNotFound)
}
