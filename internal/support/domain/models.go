package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
)

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

const (
	AuthorUser    = "user"
	AuthorSupport = "support"
)

// slaWindow is how long support has to first respond.
const SLAWindow = 2 * time.Hour

// Message is one turn in a ticket's conversation thread.
type Message struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Ticket is a support case with an ordered message thread.
type Ticket struct {
	ID           snowflake.ID   `gorm:"primaryKey" json:"id"`
	TicketNumber string         `gorm:"type:text;not null;uniqueIndex" json:"ticket_number"`
	UserID       snowflake.ID   `gorm:"not null;index" json:"user_id"`
	Category     string         `gorm:"type:text;not null" json:"category"`
	Priority     TicketPriority `gorm:"type:text;not null" json:"priority"`
	Status       TicketStatus   `gorm:"type:text;not null;index" json:"status"`
	Subject      string         `gorm:"type:text;not null" json:"subject"`
	Messages     datatypes.JSON `gorm:"type:jsonb;not null" json:"messages"`
	AssignedTo   *snowflake.ID  `json:"assigned_to,omitempty"`
	SLADeadline  time.Time      `gorm:"not null" json:"sla_deadline"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Ticket) TableName() string { return "support_tickets" }

type CreateTicketRequest struct {
	UserID      snowflake.ID
	Category    string
	Priority    TicketPriority
	Subject     string
	Description string
}

type ListFilter struct {
	Status   TicketStatus
	Priority TicketPriority
	Limit    int
}

// StatusCount is one row of the admin ticket stats.
type StatusCount struct {
	Status TicketStatus `json:"status"`
	Count  int64        `json:"count"`
}
