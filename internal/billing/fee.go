package billing

import (
	"errors"
	"math"
)

// DefaultTaxRate is the IVA applied to every parking fee.
const DefaultTaxRate = 0.16

var (
	ErrUnratedLot      = errors.New("unrated_lot")
	ErrInvalidHours    = errors.New("invalid_billable_hours")
	ErrInvalidTaxRate  = errors.New("invalid_tax_rate")
	ErrInvalidDiscount = errors.New("invalid_discount")
)

// Quote is a priced parking stay. All amounts are cents; each component is
// rounded exactly once, from the unrounded intermediates, so rounding error
// never compounds.
type Quote struct {
	HourlyRateCents int64 `json:"hourly_rate_cents"`
	BillableHours   int64 `json:"billable_hours"`
	SubtotalCents   int64 `json:"subtotal_cents"`
	TaxCents        int64 `json:"tax_cents"`
	DiscountCents   int64 `json:"discount_cents"`
	TotalCents      int64 `json:"total_cents"`
	DiscountPercent int64 `json:"discount_percent"`
}

// NewQuote prices a stay. A missing or zero hourly rate is a configuration
// error: the lot must never be billed at $0 silently.
func NewQuote(hourlyRateCents, billableHours int64, taxRate float64, discountPercent int64) (Quote, error) {
	if hourlyRateCents <= 0 {
		return Quote{}, ErrUnratedLot
	}
	if billableHours <= 0 {
		return Quote{}, ErrInvalidHours
	}
	if taxRate < 0 || taxRate >= 1 {
		return Quote{}, ErrInvalidTaxRate
	}
	if discountPercent < 0 || discountPercent > 100 {
		return Quote{}, ErrInvalidDiscount
	}

	subtotal := hourlyRateCents * billableHours
	tax := float64(subtotal) * taxRate
	discount := (float64(subtotal) + tax) * float64(discountPercent) / 100

	taxCents := int64(math.Round(tax))
	discountCents := int64(math.Round(discount))

	return Quote{
		HourlyRateCents: hourlyRateCents,
		BillableHours:   billableHours,
		SubtotalCents:   subtotal,
		TaxCents:        taxCents,
		DiscountCents:   discountCents,
		TotalCents:      subtotal + taxCents - discountCents,
		DiscountPercent: discountPercent,
	}, nil
}

// Amount converts cents into a 2-decimal float for API responses.
func Amount(cents int64) float64 {
	return float64(cents) / 100
}
