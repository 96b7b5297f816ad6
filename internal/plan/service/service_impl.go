package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/events"
	"github.com/ocelon/parking/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Outbox *events.Outbox
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	outbox *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("plan.service"),
		genID:  p.GenID,
		outbox: p.Outbox,
	}
}

func (s *Service) List(ctx context.Context) []domain.Plan {
	return domain.Catalog
}

func (s *Service) Purchase(ctx context.Context, userID snowflake.ID, code string) (*domain.Purchase, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	plan, ok := domain.ByCode(strings.ToLower(strings.TrimSpace(code)))
	if !ok {
		return nil, domain.ErrUnknownPlan
	}

	now := time.Now().UTC()
	purchase := domain.Purchase{
		ID:         s.genID.Generate(),
		UserID:     userID,
		PlanCode:   plan.Code,
		Discount:   plan.DiscountPercent,
		PriceCents: plan.PriceCents,
		Status:     "active",
		CreatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}
		result := tx.Exec(
			`UPDATE users
			 SET current_plan = ?, plan_discount = ?, plan_updated_at = ?, updated_at = ?
			 WHERE id = ?`,
			plan.Code,
			plan.DiscountPercent,
			now,
			now,
			userID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrInvalidUser
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventPlanPurchased,
			Payload: map[string]any{
				"user_id":     userID.String(),
				"plan":        plan.Code,
				"price_cents": plan.PriceCents,
			},
			DedupeKey: "plan_purchased:" + purchase.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan purchased",
		zap.String("user_id", userID.String()),
		zap.String("plan", plan.Code),
	)
	return &purchase, nil
}

func (s *Service) DiscountFor(ctx context.Context, userID snowflake.ID) (int64, error) {
	var discount int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(plan_discount, 0) FROM users WHERE id = ?`,
		userID,
	).Scan(&discount).Error
	if err != nil {
		return 0, err
	}
	if discount < 0 {
		discount = 0
	}
	if discount > 100 {
		discount = 100
	}
	return discount, nil
}
