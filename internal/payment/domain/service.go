package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service charges sessions and answers payment queries.
type Service interface {
	// Process prices the caller's active session and settles it: one payment
	// row, the session marked paid, a balanced ledger posting and an outbox
	// event, all in one transaction. A session that is no longer active
	// rejects with a conflict and nothing is written.
	Process(ctx context.Context, req ProcessRequest) (*Receipt, error)

	Get(ctx context.Context, id string) (*Payment, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Payment, error)
	ListBySession(ctx context.Context, sessionID string) ([]Payment, error)

	RequestInvoice(ctx context.Context, input InvoiceRequestInput) (*InvoiceRequest, error)

	// Summary aggregates completed payments inside [from, to).
	Summary(ctx context.Context, from, to time.Time) (*RevenueSummary, error)
}

var (
	ErrNotFound       = errors.New("payment_not_found")
	ErrInvalidID      = errors.New("invalid_payment_id")
	ErrInvalidMethod  = errors.New("invalid_payment_method")
	ErrInvalidTaxInfo = errors.New("invalid_tax_info")
	ErrNotSessionUser = errors.New("session_belongs_to_other_user")
)
