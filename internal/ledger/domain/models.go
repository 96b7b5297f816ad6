package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Direction represents debit or credit postings.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

const (
	SourceTypePayment = "payment"
)

const (
	AccountCodeCashClearing = "cash_clearing"
	AccountCodeRevenue      = "revenue"
	AccountCodeTaxPayable   = "tax_payable"
)

// Account defines a chart-of-accounts entry.
type Account struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Code      string       `gorm:"type:text;not null;uniqueIndex"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "ledger_accounts" }

// Entry captures the immutable header for a financial event.
type Entry struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	SourceType string       `gorm:"type:text;not null;index"`
	SourceID   snowflake.ID `gorm:"not null;index"`
	Currency   string       `gorm:"type:text;not null"`
	OccurredAt time.Time    `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "ledger_entries" }

// EntryLine is a double-entry posting line.
type EntryLine struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	EntryID     snowflake.ID `gorm:"not null;index"`
	AccountID   snowflake.ID `gorm:"not null;index"`
	Direction   Direction    `gorm:"type:text;not null"`
	AmountCents int64        `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EntryLine) TableName() string { return "ledger_entry_lines" }

// Line is a posting against an account code, resolved to an account id
// when the entry is written.
type Line struct {
	AccountCode string
	Direction   Direction
	AmountCents int64
}
