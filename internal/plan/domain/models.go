package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan is a subscription tier carrying the discount applied at fee time.
// The catalog is fixed server-side; clients only name a code.
type Plan struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	DiscountPercent int64  `json:"discount_percent"`
	PriceCents      int64  `json:"price_cents"`
}

const (
	CodeBasic      = "basic"
	CodePremium    = "premium"
	CodeEnterprise = "enterprise"
)

// Catalog is the fixed set of purchasable plans, cheapest first.
var Catalog = []Plan{
	{Code: CodeBasic, Name: "Basic", DiscountPercent: 0, PriceCents: 0},
	{Code: CodePremium, Name: "Premium", DiscountPercent: 15, PriceCents: 9900},
	{Code: CodeEnterprise, Name: "Enterprise", DiscountPercent: 25, PriceCents: 29900},
}

// ByCode resolves a plan from the catalog.
func ByCode(code string) (Plan, bool) {
	for _, plan := range Catalog {
		if plan.Code == code {
			return plan, true
		}
	}
	return Plan{}, false
}

// Purchase is an immutable record of a plan purchase.
type Purchase struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID     snowflake.ID `gorm:"not null;index" json:"user_id"`
	PlanCode   string       `gorm:"type:text;not null" json:"plan_code"`
	Discount   int64        `gorm:"not null" json:"discount"`
	PriceCents int64        `gorm:"not null" json:"price_cents"`
	Status     string       `gorm:"type:text;not null" json:"status"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Purchase) TableName() string { return "plan_purchases" }
