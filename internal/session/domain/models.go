package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SessionStatus is the lifecycle state of a parking stay.
//
// Transitions form a strict progression: active -> paid -> finalized.
// An active session may also be cancelled by an admin. Nothing else is legal.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusPaid      SessionStatus = "paid"
	StatusFinalized SessionStatus = "finalized"
	StatusCancelled SessionStatus = "cancelled"
)

// Session is one parking stay, from vehicle entry to exit. Rows are
// append-only: sessions are never deleted, only transitioned.
type Session struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID        snowflake.ID   `gorm:"not null;index" json:"user_id"`
	LotID         snowflake.ID   `gorm:"not null;index" json:"lot_id"`
	VehiclePlates string         `gorm:"type:text;not null" json:"vehicle_plates"`
	QRCode        string         `gorm:"type:text;not null" json:"qr_code"`
	EntryTime     time.Time      `gorm:"not null" json:"entry_time"`
	ExitTime      *time.Time     `json:"exit_time,omitempty"`
	Status        SessionStatus  `gorm:"type:text;not null;index" json:"status"`
	AmountCents   *int64         `json:"amount_cents,omitempty"`
	PaymentID     *snowflake.ID  `json:"payment_id,omitempty"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// SessionWithLot is a session joined with its lot's display fields.
type SessionWithLot struct {
	Session
	LotName         string `json:"lot_name"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
}

type StartRequest struct {
	UserID        snowflake.ID
	LotID         string
	VehiclePlates string
	Source        string
	ClientIP      string
}
