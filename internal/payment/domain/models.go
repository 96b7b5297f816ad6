package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	// Provider tags every payment; the charge itself is handled upstream.
	Provider = "OpenPayments"

	StatusCompleted = "completed"
)

const (
	MethodCard     = "card"
	MethodCash     = "cash"
	MethodTransfer = "transfer"
)

// Payment is the immutable record of one successful charge. Rows are written
// exactly once and never updated.
type Payment struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	SessionID     snowflake.ID   `gorm:"not null;index" json:"session_id"`
	UserID        snowflake.ID   `gorm:"not null;index" json:"user_id"`
	TransactionID string         `gorm:"type:text;not null;uniqueIndex" json:"transaction_id"`
	SubtotalCents int64          `gorm:"not null" json:"subtotal_cents"`
	TaxCents      int64          `gorm:"not null" json:"tax_cents"`
	DiscountCents int64          `gorm:"not null;default:0" json:"discount_cents"`
	TotalCents    int64          `gorm:"not null" json:"total_cents"`
	BillableHours int64          `gorm:"not null" json:"billable_hours"`
	RateCents     int64          `gorm:"not null" json:"rate_cents"`
	Method        string         `gorm:"type:text;not null" json:"method"`
	Provider      string         `gorm:"type:text;not null" json:"provider"`
	Status        string         `gorm:"type:text;not null" json:"status"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// InvoiceRequest records a fiscal invoice request against a payment. The
// actual CFDI generation happens in an external system; only the request and
// its folio live here.
type InvoiceRequest struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	PaymentID    snowflake.ID `gorm:"not null;index" json:"payment_id"`
	UserID       snowflake.ID `gorm:"not null;index" json:"user_id"`
	TaxID        string       `gorm:"type:text;not null" json:"tax_id"`
	BusinessName string       `gorm:"type:text;not null" json:"business_name"`
	CFDIUse      string       `gorm:"type:text" json:"cfdi_use,omitempty"`
	Folio        string       `gorm:"type:text;not null;uniqueIndex" json:"folio"`
	Status       string       `gorm:"type:text;not null" json:"status"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceRequest) TableName() string { return "payment_invoices" }

// Receipt is what a successful process call hands back to the API.
type Receipt struct {
	PaymentID     snowflake.ID `json:"payment_id"`
	TransactionID string       `json:"transaction_id"`
	SubtotalCents int64        `json:"subtotal_cents"`
	TaxCents      int64        `json:"tax_cents"`
	DiscountCents int64        `json:"discount_cents"`
	TotalCents    int64        `json:"total_cents"`
	BillableHours int64        `json:"billable_hours"`
}

// RevenueSummary aggregates completed payments for the admin report.
type RevenueSummary struct {
	PaymentCount       int64 `json:"payment_count"`
	SubtotalCents      int64 `json:"subtotal_cents"`
	TaxCents           int64 `json:"tax_cents"`
	DiscountCents      int64 `json:"discount_cents"`
	TotalCents         int64 `json:"total_cents"`
	AverageTicketCents int64 `json:"average_ticket_cents"`
}

type ProcessRequest struct {
	SessionID string
	UserID    snowflake.ID
	Method    string
}

type InvoiceRequestInput struct {
	PaymentID    string
	UserID       snowflake.ID
	TaxID        string
	BusinessName string
	CFDIUse      string
}
