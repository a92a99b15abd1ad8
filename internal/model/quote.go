package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus is free-form within this set; no transition graph is enforced.
type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "draft"
	QuoteSent     QuoteStatus = "sent"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

// Valid reports whether s is a known quote status.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected, QuoteExpired:
		return true
	}
	return false
}

// QuoteItem is one priced line of a quote.
type QuoteItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Quote is a priced proposal.  BookingID references a booking informally;
// nothing enforces that it exists.
//
// Subtotal, DiscountAmount, TaxAmount and Total are derived from Items,
// DiscountPct and TaxPct and are refreshed on every write and read.
type Quote struct {
	ID             string          `json:"id"`
	QuoteNumber    string          `json:"quote_number"`
	BookingID      *string         `json:"booking_id,omitempty"`
	ClientName     string          `json:"client_name"`
	ClientEmail    string          `json:"client_email"`
	Items          []QuoteItem     `json:"items"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	TaxPct         decimal.Decimal `json:"tax_pct"`
	Notes          string          `json:"notes,omitempty"`
	PaymentTerms   string          `json:"payment_terms,omitempty"`
	IssueDate      string          `json:"issue_date"`            // YYYY-MM-DD
	ValidUntil     *string         `json:"valid_until,omitempty"` // YYYY-MM-DD
	Status         QuoteStatus     `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
