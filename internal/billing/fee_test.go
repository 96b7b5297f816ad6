package billing

import (
	"errors"
	"testing"
	"time"
)

func TestBillableHoursCeiling(t *testing.T) {
	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		minutes int64
		want    int64
	}{
		{-30, 1},
		{0, 1},
		{1, 1},
		{59, 1},
		{60, 1},
		{61, 2},
		{120, 2},
		{121, 3},
		{600, 10},
	}
	for _, tc := range cases {
		exit := entry.Add(time.Duration(tc.minutes) * time.Minute)
		if got := BillableHours(entry, exit); got != tc.want {
			t.Fatalf("BillableHours(%dm) = %d, want %d", tc.minutes, got, tc.want)
		}
	}
}

func TestDisplayDuration(t *testing.T) {
	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	hours, minutes := DisplayDuration(entry, entry.Add(95*time.Minute))
	if hours != 1 || minutes != 35 {
		t.Fatalf("expected 1h35m, got %dh%dm", hours, minutes)
	}

	hours, minutes = DisplayDuration(entry, entry.Add(-5*time.Minute))
	if hours != 0 || minutes != 0 {
		t.Fatalf("expected 0h0m for negative elapsed, got %dh%dm", hours, minutes)
	}
}

func TestQuoteWithoutDiscount(t *testing.T) {
	quote, err := NewQuote(2000, 3, DefaultTaxRate, 0)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.SubtotalCents != 6000 {
		t.Fatalf("subtotal = %d, want 6000", quote.SubtotalCents)
	}
	if quote.TaxCents != 960 {
		t.Fatalf("tax = %d, want 960", quote.TaxCents)
	}
	if quote.DiscountCents != 0 {
		t.Fatalf("discount = %d, want 0", quote.DiscountCents)
	}
	if quote.TotalCents != 6960 {
		t.Fatalf("total = %d, want 6960", quote.TotalCents)
	}
}

func TestQuoteWithPlanDiscount(t *testing.T) {
	quote, err := NewQuote(2000, 3, DefaultTaxRate, 15)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.DiscountCents != 1044 {
		t.Fatalf("discount = %d, want 1044", quote.DiscountCents)
	}
	if quote.TotalCents != 5916 {
		t.Fatalf("total = %d, want 5916", quote.TotalCents)
	}
}

func TestQuoteRejectsUnratedLot(t *testing.T) {
	if _, err := NewQuote(0, 2, DefaultTaxRate, 0); !errors.Is(err, ErrUnratedLot) {
		t.Fatalf("expected ErrUnratedLot, got %v", err)
	}
	if _, err := NewQuote(-100, 2, DefaultTaxRate, 0); !errors.Is(err, ErrUnratedLot) {
		t.Fatalf("expected ErrUnratedLot for negative rate, got %v", err)
	}
}

func TestQuoteRejectsBadInputs(t *testing.T) {
	if _, err := NewQuote(2000, 0, DefaultTaxRate, 0); !errors.Is(err, ErrInvalidHours) {
		t.Fatalf("expected ErrInvalidHours, got %v", err)
	}
	if _, err := NewQuote(2000, 1, -0.1, 0); !errors.Is(err, ErrInvalidTaxRate) {
		t.Fatalf("expected ErrInvalidTaxRate, got %v", err)
	}
	if _, err := NewQuote(2000, 1, DefaultTaxRate, 101); !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}

func TestAmount(t *testing.T) {
	if got := Amount(5916); got != 59.16 {
		t.Fatalf("Amount(5916) = %v, want 59.16", got)
	}
}
