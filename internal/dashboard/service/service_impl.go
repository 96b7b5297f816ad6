package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/clock"
	"github.com/ocelon/parking/internal/dashboard/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dayWindow   = 30
	monthWindow = 6
	recentLimit = 10
	topLotLimit = 5
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		clock: p.Clock,
	}
}

// sessionRow and paymentRow are scanned in bulk; day and month grouping
// happens in Go so the queries stay portable across postgres and sqlite.
type sessionRow struct {
	ID          snowflake.ID
	LotID       snowflake.ID
	LotName     string
	Status      string
	EntryTime   time.Time
	AmountCents *int64
}

type paymentRow struct {
	TotalCents int64
	Method     string
	Timestamp  time.Time
}

func (s *Service) UserOverview(ctx context.Context, userID snowflake.ID) (*domain.UserOverview, error) {
	now := s.clock.Now()
	since := now.AddDate(0, 0, -dayWindow)
	monthsBack := now.AddDate(0, -monthWindow, 0)

	var sessions []sessionRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT s.id, s.lot_id, COALESCE(l.name, '') AS lot_name, s.status, s.entry_time, s.amount_cents
		 FROM sessions s
		 LEFT JOIN parking_lots l ON l.id = s.lot_id
		 WHERE s.user_id = ?
		 ORDER BY s.entry_time DESC`,
		userID,
	).Scan(&sessions).Error
	if err != nil {
		return nil, err
	}

	var payments []paymentRow
	err = s.db.WithContext(ctx).Raw(
		`SELECT total_cents, method, timestamp
		 FROM payments
		 WHERE user_id = ? AND timestamp >= ?`,
		userID,
		monthsBack,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}

	overview := &domain.UserOverview{
		TotalSessions: int64(len(sessions)),
		TotalPayments: int64(len(payments)),
	}

	byDay := map[string]int64{}
	byStatus := map[string]int64{}
	byLot := map[snowflake.ID]*domain.LotUsage{}
	for _, row := range sessions {
		byStatus[row.Status]++
		if row.Status == "active" {
			overview.ActiveSessions++
		}
		if !row.EntryTime.Before(since) {
			byDay[row.EntryTime.UTC().Format("2006-01-02")]++
		}
		usage, ok := byLot[row.LotID]
		if !ok {
			usage = &domain.LotUsage{LotID: row.LotID.String(), LotName: row.LotName}
			byLot[row.LotID] = usage
		}
		usage.Sessions++

		if len(overview.RecentSessions) < recentLimit {
			overview.RecentSessions = append(overview.RecentSessions, domain.RecentActivity{
				SessionID:   row.ID.String(),
				LotName:     row.LotName,
				Status:      row.Status,
				EntryTime:   row.EntryTime.UTC().Format(time.RFC3339),
				AmountCents: row.AmountCents,
			})
		}
	}

	byMonth := map[string]int64{}
	for _, row := range payments {
		overview.TotalSpentCents += row.TotalCents
		byMonth[row.Timestamp.UTC().Format("2006-01")] += row.TotalCents
	}

	overview.SessionsByDay = sortedDayCounts(byDay)
	overview.SessionsByState = sortedStatusCounts(byStatus)
	overview.SpendingByMonth = sortedMonthAmounts(byMonth)
	overview.TopLots = topLots(byLot)
	return overview, nil
}

func (s *Service) AdminAnalytics(ctx context.Context) (*domain.AdminAnalytics, error) {
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	since := now.AddDate(0, 0, -dayWindow)

	analytics := &domain.AdminAnalytics{}

	counts := []struct {
		dest  *int64
		query string
		args  []any
	}{
		{&analytics.TotalUsers, `SELECT COUNT(1) FROM users`, nil},
		{&analytics.TotalLots, `SELECT COUNT(1) FROM parking_lots WHERE status = 'active'`, nil},
		{&analytics.ActiveSessions, `SELECT COUNT(1) FROM sessions WHERE status = 'active'`, nil},
		{&analytics.SessionsToday, `SELECT COUNT(1) FROM sessions WHERE entry_time >= ?`, []any{today}},
		{&analytics.MonthRevenueCents, `SELECT COALESCE(SUM(total_cents), 0) FROM payments WHERE status = 'completed' AND timestamp >= ?`, []any{monthStart}},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Raw(c.query, c.args...).Scan(c.dest).Error; err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Raw(
		`SELECT l.id AS lot_id, l.name AS lot_name,
			COALESCE(SUM(p.total_cents), 0) AS revenue_cents,
			COUNT(p.id) AS payments
		 FROM parking_lots l
		 LEFT JOIN sessions s ON s.lot_id = l.id
		 LEFT JOIN payments p ON p.session_id = s.id AND p.status = 'completed'
		 GROUP BY l.id, l.name
		 ORDER BY revenue_cents DESC`,
	).Scan(&analytics.RevenueByLot).Error
	if err != nil {
		return nil, err
	}

	var sessions []sessionRow
	err = s.db.WithContext(ctx).Raw(
		`SELECT id, lot_id, '' AS lot_name, status, entry_time, amount_cents
		 FROM sessions
		 WHERE entry_time >= ?`,
		since,
	).Scan(&sessions).Error
	if err != nil {
		return nil, err
	}
	byDay := map[string]int64{}
	for _, row := range sessions {
		byDay[row.EntryTime.UTC().Format("2006-01-02")]++
	}
	analytics.SessionsByDay = sortedDayCounts(byDay)

	err = s.db.WithContext(ctx).Raw(
		`SELECT method, COUNT(1) AS count
		 FROM payments
		 GROUP BY method
		 ORDER BY count DESC`,
	).Scan(&analytics.PaymentMethods).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Raw(
		`SELECT status, COUNT(1) AS count
		 FROM support_tickets
		 GROUP BY status
		 ORDER BY status`,
	).Scan(&analytics.TicketsByStatus).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Raw(
		`SELECT current_plan AS plan, COUNT(1) AS count
		 FROM users
		 GROUP BY current_plan
		 ORDER BY count DESC`,
	).Scan(&analytics.PlanDistribution).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Raw(
		`SELECT id AS lot_id, name AS lot_name, total_spots, occupied_spots
		 FROM parking_lots
		 WHERE status = 'active'
		 ORDER BY name`,
	).Scan(&analytics.OccupancySnapshot).Error
	if err != nil {
		return nil, err
	}

	return analytics, nil
}

func sortedDayCounts(byDay map[string]int64) []domain.DayCount {
	out := make([]domain.DayCount, 0, len(byDay))
	for day, count := range byDay {
		out = append(out, domain.DayCount{Day: day, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

func sortedStatusCounts(byStatus map[string]int64) []domain.StatusCount {
	out := make([]domain.StatusCount, 0, len(byStatus))
	for status, count := range byStatus {
		out = append(out, domain.StatusCount{Status: status, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

func sortedMonthAmounts(byMonth map[string]int64) []domain.MonthAmount {
	out := make([]domain.MonthAmount, 0, len(byMonth))
	for month, amount := range byMonth {
		out = append(out, domain.MonthAmount{Month: month, AmountCents: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func topLots(byLot map[snowflake.ID]*domain.LotUsage) []domain.LotUsage {
	out := make([]domain.LotUsage, 0, len(byLot))
	for _, usage := range byLot {
		out = append(out, *usage)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sessions != out[j].Sessions {
			return out[i].Sessions > out[j].Sessions
		}
		return out[i].LotName < out[j].LotName
	})
	if len(out) > topLotLimit {
		out = out[:topLotLimit]
	}
	return out
}
