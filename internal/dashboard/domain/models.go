package domain

// UserOverview is a driver's dashboard snapshot.
type UserOverview struct {
	TotalSessions   int64            `json:"total_sessions"`
	ActiveSessions  int64            `json:"active_sessions"`
	TotalPayments   int64            `json:"total_payments"`
	TotalSpentCents int64            `json:"total_spent_cents"`
	SessionsByDay   []DayCount       `json:"sessions_by_day"`
	SessionsByState []StatusCount    `json:"sessions_by_status"`
	SpendingByMonth []MonthAmount    `json:"spending_by_month"`
	TopLots         []LotUsage       `json:"top_lots"`
	RecentSessions  []RecentActivity `json:"recent_sessions"`
}

// AdminAnalytics is the operator-wide dashboard snapshot.
type AdminAnalytics struct {
	TotalUsers          int64         `json:"total_users"`
	TotalLots           int64         `json:"total_lots"`
	ActiveSessions      int64         `json:"active_sessions"`
	SessionsToday       int64         `json:"sessions_today"`
	MonthRevenueCents   int64         `json:"month_revenue_cents"`
	RevenueByLot        []LotRevenue  `json:"revenue_by_lot"`
	SessionsByDay       []DayCount    `json:"sessions_by_day"`
	PaymentMethods      []MethodCount `json:"payment_methods"`
	TicketsByStatus     []StatusCount `json:"tickets_by_status"`
	PlanDistribution    []PlanCount   `json:"plan_distribution"`
	OccupancySnapshot   []LotLoad     `json:"occupancy"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type MonthAmount struct {
	Month       string `json:"month"`
	AmountCents int64  `json:"amount_cents"`
}

type LotUsage struct {
	LotID    string `json:"lot_id"`
	LotName  string `json:"lot_name"`
	Sessions int64  `json:"sessions"`
}

type LotRevenue struct {
	LotID        string `json:"lot_id"`
	LotName      string `json:"lot_name"`
	RevenueCents int64  `json:"revenue_cents"`
	Payments     int64  `json:"payments"`
}

type MethodCount struct {
	Method string `json:"method"`
	Count  int64  `json:"count"`
}

type PlanCount struct {
	Plan  string `json:"plan"`
	Count int64  `json:"count"`
}

type LotLoad struct {
	LotID         string `json:"lot_id"`
	LotName       string `json:"lot_name"`
	TotalSpots    int64  `json:"total_spots"`
	OccupiedSpots int64  `json:"occupied_spots"`
}

type RecentActivity struct {
	SessionID   string `json:"session_id"`
	LotName     string `json:"lot_name"`
	Status      string `json:"status"`
	EntryTime   string `json:"entry_time"`
	AmountCents *int64 `json:"amount_cents,omitempty"`
}
