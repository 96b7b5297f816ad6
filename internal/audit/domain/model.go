package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActorType represents who triggered an action.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeSystem ActorType = "system"
)

const (
	ActionSessionStarted   = "session.started"
	ActionSessionPaid      = "session.paid"
	ActionSessionFinalized = "session.finalized"
	ActionSessionCancelled = "session.cancelled"
	ActionPlanPurchased    = "plan.purchased"
	ActionLotCreated       = "lot.created"
	ActionLotUpdated       = "lot.updated"
	ActionLotDeactivated   = "lot.deactivated"
	ActionUserRoleChanged  = "user.role_changed"
	ActionTicketResolved   = "ticket.resolved"
)

// AuditLog captures an immutable record of a user or admin action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ActorType  ActorType         `gorm:"type:text;not null"`
	ActorID    *string           `gorm:"type:text"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   *string           `gorm:"type:text"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	IPAddress  *string           `gorm:"type:text"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
