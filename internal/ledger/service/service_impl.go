package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var accountNames = map[string]string{
	domain.AccountCodeCashClearing: "Cash Clearing",
	domain.AccountCodeRevenue:      "Parking Revenue",
	domain.AccountCodeTaxPayable:   "Tax Payable",
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) CreateEntry(
	ctx context.Context,
	tx *gorm.DB,
	sourceType string,
	sourceID snowflake.ID,
	currency string,
	occurredAt time.Time,
	lines []domain.Line,
) error {
	if tx == nil {
		tx = s.db
	}
	if strings.TrimSpace(sourceType) == "" {
		return domain.ErrInvalidSourceType
	}
	if sourceID == 0 {
		return domain.ErrInvalidSourceID
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return domain.ErrInvalidCurrency
	}
	if occurredAt.IsZero() {
		return domain.ErrInvalidOccurredAt
	}
	if err := domain.ValidateBalanced(lines); err != nil {
		return err
	}

	now := time.Now().UTC()
	entry := domain.Entry{
		ID:         s.genID.Generate(),
		SourceType: sourceType,
		SourceID:   sourceID,
		Currency:   currency,
		OccurredAt: occurredAt,
		CreatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return err
	}

	for _, line := range lines {
		accountID, err := s.ensureAccount(ctx, tx, line.AccountCode)
		if err != nil {
			return err
		}
		record := domain.EntryLine{
			ID:          s.genID.Generate(),
			EntryID:     entry.ID,
			AccountID:   accountID,
			Direction:   line.Direction,
			AmountCents: line.AmountCents,
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

// ensureAccount resolves an account code, creating the account on first use.
func (s *Service) ensureAccount(ctx context.Context, tx *gorm.DB, code string) (snowflake.ID, error) {
	code = strings.TrimSpace(code)
	name, ok := accountNames[code]
	if !ok {
		return 0, domain.ErrInvalidAccount
	}

	var accountID snowflake.ID
	err := tx.WithContext(ctx).Raw(
		`SELECT id FROM ledger_accounts WHERE code = ?`, code,
	).Scan(&accountID).Error
	if err != nil {
		return 0, err
	}
	if accountID != 0 {
		return accountID, nil
	}

	account := domain.Account{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		return 0, err
	}
	return account.ID, nil
}
