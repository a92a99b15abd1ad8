package service

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/pricing"
)

// QuoteItemInput is one line of a quote as entered by an admin.
type QuoteItemInput struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gte=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

// QuoteInput creates or replaces the commercial content of a quote.
type QuoteInput struct {
	BookingID    *string           `json:"booking_id" validate:"omitempty,uuid"`
	ClientName   string            `json:"client_name" validate:"required,max=200"`
	ClientEmail  string            `json:"client_email" validate:"required,email,max=254"`
	Items        []QuoteItemInput  `json:"items" validate:"max=200,dive"`
	DiscountPct  decimal.Decimal   `json:"discount_pct" validate:"gte=0,lte=100"`
	TaxPct       decimal.Decimal   `json:"tax_pct" validate:"gte=0,lte=100"`
	Notes        string            `json:"notes" validate:"max=5000"`
	PaymentTerms string            `json:"payment_terms" validate:"max=2000"`
	IssueDate    string            `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	ValidUntil   *string           `json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
	Status       model.QuoteStatus `json:"status" validate:"omitempty,oneof=draft sent accepted rejected expired"`
}

// PreviewInput is the calculator probe.
type PreviewInput struct {
	Items       []QuoteItemInput `json:"items" validate:"max=200,dive"`
	DiscountPct decimal.Decimal  `json:"discount_pct" validate:"gte=0,lte=100"`
	TaxPct      decimal.Decimal  `json:"tax_pct" validate:"gte=0,lte=100"`
}

// QuoteService manages quotes.  Totals are recomputed through
// pricing.Compute on every write and every read.
type QuoteService struct {
	store QuoteStore
	clock clockwork.Clock
	log   *slog.Logger
}

// NewQuoteService wires a QuoteService.
func NewQuoteService(store QuoteStore, clock clockwork.Clock, log *slog.Logger) *QuoteService {
	return &QuoteService{store: store, clock: clock, log: log}
}

// Preview validates in and returns its totals without storing anything.
func (s *QuoteService) Preview(in PreviewInput) (pricing.Totals, error) {
	if err := validateStruct(in); err != nil {
		return pricing.Totals{}, err
	}
	items := make([]pricing.LineItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = pricing.LineItem{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return pricing.Compute(items, in.DiscountPct, in.TaxPct), nil
}

// Create stores a new quote.  Status defaults to draft and the issue date to
// today.
func (s *QuoteService) Create(ctx context.Context, in QuoteInput) (*model.Quote, error) {
	now := s.clock.Now().UTC()
	if err := s.check(&in, now.Format(dateLayout)); err != nil {
		return nil, err
	}
	q := &model.Quote{
		ID:        uuid.NewString(),
		Status:    model.QuoteDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fill(q, in)
	pricing.Apply(q)

	err := withFreshReference(func() error {
		q.QuoteNumber = newQuoteNumber(q.IssueDate)
		return s.store.Create(ctx, q)
	})
	if err != nil {
		return nil, storeError(s.log, "create quote", err)
	}
	return q, nil
}

// Update replaces the commercial content of quote id.
func (s *QuoteService) Update(ctx context.Context, id string, in QuoteInput) (*model.Quote, error) {
	now := s.clock.Now().UTC()
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.log, "get quote", err)
	}
	if err := s.check(&in, cur.IssueDate); err != nil {
		return nil, err
	}
	fill(cur, in)
	cur.UpdatedAt = now
	pricing.Apply(cur)
	if err := s.store.Update(ctx, cur); err != nil {
		return nil, storeError(s.log, "update quote", err)
	}
	return cur, nil
}

// UpdateStatus sets the status of quote id.  Quotes have no transition graph.
func (s *QuoteService) UpdateStatus(ctx context.Context, id string, status model.QuoteStatus) (*model.Quote, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", "unknown status")
	}
	if err := s.store.UpdateStatus(ctx, id, status, s.clock.Now().UTC()); err != nil {
		return nil, storeError(s.log, "update quote status", err)
	}
	return s.Get(ctx, id)
}

// Get loads quote id with freshly computed totals.
func (s *QuoteService) Get(ctx context.Context, id string) (*model.Quote, error) {
	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.log, "get quote", err)
	}
	pricing.Apply(q)
	return q, nil
}

// List returns quotes newest first.  Listed quotes carry no items, so their
// stored totals are returned as written.
func (s *QuoteService) List(ctx context.Context, status model.QuoteStatus, limit, offset int) ([]model.Quote, error) {
	if status != "" && !status.Valid() {
		return nil, NewValidationError("status", "unknown status")
	}
	out, err := s.store.List(ctx, status, limit, offset)
	if err != nil {
		return nil, storeError(s.log, "list quotes", err)
	}
	return out, nil
}

// Delete removes quote id.
func (s *QuoteService) Delete(ctx context.Context, id string) error {
	return storeError(s.log, "delete quote", s.store.Delete(ctx, id))
}

func (s *QuoteService) check(in *QuoteInput, defaultIssue string) error {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.ClientEmail = strings.ToLower(strings.TrimSpace(in.ClientEmail))
	if in.IssueDate == "" {
		in.IssueDate = defaultIssue
	}
	if in.BookingID != nil && strings.TrimSpace(*in.BookingID) == "" {
		in.BookingID = nil
	}
	if in.ValidUntil != nil && *in.ValidUntil == "" {
		in.ValidUntil = nil
	}
	if err := validateStruct(*in); err != nil {
		return err
	}
	if in.ValidUntil != nil && *in.ValidUntil < in.IssueDate {
		return NewValidationError("valid_until", "must not be before issue_date")
	}
	return nil
}

func fill(q *model.Quote, in QuoteInput) {
	q.BookingID = in.BookingID
	q.ClientName = in.ClientName
	q.ClientEmail = in.ClientEmail
	q.Items = make([]model.QuoteItem, len(in.Items))
	for i, it := range in.Items {
		q.Items[i] = model.QuoteItem{Description: strings.TrimSpace(it.Description), Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	q.DiscountPct = in.DiscountPct
	q.TaxPct = in.TaxPct
	q.Notes = in.Notes
	q.PaymentTerms = in.PaymentTerms
	q.IssueDate = in.IssueDate
	q.ValidUntil = in.ValidUntil
	if in.Status != "" {
		q.Status = in.Status
	}
}

// newQuoteNumber returns "Q-YYYYMMDD-XXXX" for the given issue date.
func newQuoteNumber(issueDate string) string {
	id := uuid.New()
	return "Q-" + strings.ReplaceAll(issueDate, "-", "") + "-" + strings.ToUpper(hex.EncodeToString(id[:2]))
}
