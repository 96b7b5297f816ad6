package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service answers dashboard queries. Read-only.
type Service interface {
	UserOverview(ctx context.Context, userID snowflake.ID) (*UserOverview, error)
	AdminAnalytics(ctx context.Context) (*AdminAnalytics, error)
}
