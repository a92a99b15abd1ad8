// Package pricing derives quote totals from line items.  The same Compute
// call backs both quote writes and quote rendering so the two can never
// disagree on rounding.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

// MoneyPlaces is the number of decimal places money is rounded to.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// LineItem is the priced part of a quote line.
type LineItem struct {
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Totals holds the derived amounts of a quote.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Compute derives subtotal, discount, tax and total.
//
// Each derived amount is rounded once, half away from zero, to MoneyPlaces,
// and the total is built from the rounded parts so that
// Total == Subtotal - DiscountAmount + TaxAmount holds exactly.  Inputs are
// not validated: negative quantities or percentages outside [0,100] are the
// caller's responsibility.
func Compute(items []LineItem, discountPct, taxPct decimal.Decimal) Totals {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Quantity.Mul(it.UnitPrice))
	}
	subtotal := sum.Round(MoneyPlaces)
	discount := subtotal.Mul(discountPct).Div(hundred).Round(MoneyPlaces)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxPct).Div(hundred).Round(MoneyPlaces)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		Total:          taxable.Add(tax),
	}
}

// ItemsOf converts quote lines to calculator input.
func ItemsOf(lines []model.QuoteItem) []LineItem {
	out := make([]LineItem, len(lines))
	for i, l := range lines {
		out[i] = LineItem{Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return out
}

// Apply recomputes q's derived totals in place.
func Apply(q *model.Quote) {
	t := Compute(ItemsOf(q.Items), q.DiscountPct, q.TaxPct)
	q.Subtotal = t.Subtotal
	q.DiscountAmount = t.DiscountAmount
	q.TaxAmount = t.TaxAmount
	q.Total = t.Total
}
