package domain

import (
	"context"
	"time"
)

// Record is one audit event to persist.
type Record struct {
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}

// Service writes and reads the audit trail. Writes are best-effort: a failed
// audit insert is logged, never propagated to the caller's request.
type Service interface {
	Write(ctx context.Context, record Record)
	List(ctx context.Context, filter ListFilter) ([]AuditLog, error)
}
