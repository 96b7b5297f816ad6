package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service handles plan purchases and discount resolution.
type Service interface {
	List(ctx context.Context) []Plan

	// Purchase records the purchase and switches the user's current plan.
	Purchase(ctx context.Context, userID snowflake.ID, code string) (*Purchase, error)

	// DiscountFor resolves the discount percent of the user's current plan.
	// Unknown users and users without a plan get zero.
	DiscountFor(ctx context.Context, userID snowflake.ID) (int64, error)
}

var (
	ErrUnknownPlan = errors.New("unknown_plan")
	ErrInvalidUser = errors.New("invalid_user")
)
