package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service manages the parking session lifecycle.
type Service interface {
	// Start opens a session, claiming one spot at the lot atomically with the
	// insert. A full lot rejects the request with a capacity error.
	Start(ctx context.Context, req StartRequest) (*Session, error)

	Get(ctx context.Context, id string) (*SessionWithLot, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]SessionWithLot, error)
	ListActive(ctx context.Context) ([]SessionWithLot, error)

	// MarkPaid transitions active -> paid inside the caller's transaction,
	// setting the amount and payment link. The update is gated on the current
	// status so a concurrent second payment observes ErrNotActive.
	MarkPaid(ctx context.Context, tx *gorm.DB, id snowflake.ID, amountCents int64, paymentID snowflake.ID) error

	// ValidateExit transitions paid -> finalized, stamps the exit time and
	// frees the spot. Conflict if the session is not currently paid.
	ValidateExit(ctx context.Context, id string) (*Session, error)

	// Cancel is the admin override: active -> cancelled, freeing the spot.
	Cancel(ctx context.Context, id string) (*Session, error)
}

var (
	ErrNotFound      = errors.New("session_not_found")
	ErrInvalidID     = errors.New("invalid_session_id")
	ErrInvalidPlates = errors.New("invalid_vehicle_plates")
	ErrNotActive     = errors.New("session_not_active")
	ErrNotPaid       = errors.New("session_not_paid")
)
