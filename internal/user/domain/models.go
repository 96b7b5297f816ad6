package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role gates access: drivers use the app, admins run it.
type Role string

const (
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is an account holder. Email is stored lowercased and unique; the
// password is an argon2id hash, never the plaintext.
type User struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Email         string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash  string       `gorm:"type:text;not null" json:"-"`
	Role          Role         `gorm:"type:text;not null" json:"role"`
	Status        UserStatus   `gorm:"type:text;not null" json:"status"`
	FullName      string       `gorm:"type:text;not null" json:"full_name"`
	Phone         string       `gorm:"type:text" json:"phone,omitempty"`
	TaxID         string       `gorm:"type:text" json:"tax_id,omitempty"`
	CurrentPlan   string       `gorm:"type:text;not null;default:'basic'" json:"current_plan"`
	PlanDiscount  int64        `gorm:"not null;default:0" json:"plan_discount"`
	PlanUpdatedAt *time.Time   `json:"plan_updated_at,omitempty"`
	LastLogin     *time.Time   `json:"last_login,omitempty"`

	// Only the sha256 hash of a reset token is persisted; the raw token
	// leaves the system through the delivery channel and is never stored.
	ResetTokenHash   *string    `gorm:"type:text;index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Phone    string
	TaxID    string
}

type UpdateProfileRequest struct {
	FullName *string
	Phone    *string
	TaxID    *string
}

// AuthResult is what a successful register or login hands back to the API.
type AuthResult struct {
	User  *User
	Token string
}
