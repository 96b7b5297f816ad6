package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/ocelon/parking/internal/billing"
	"github.com/ocelon/parking/internal/clock"
	"github.com/ocelon/parking/internal/config"
	"github.com/ocelon/parking/internal/events"
	ledgerdomain "github.com/ocelon/parking/internal/ledger/domain"
	lotdomain "github.com/ocelon/parking/internal/lot/domain"
	"github.com/ocelon/parking/internal/payment/domain"
	plandomain "github.com/ocelon/parking/internal/plan/domain"
	sessiondomain "github.com/ocelon/parking/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const currency = "MXN"

var validMethods = map[string]bool{
	domain.MethodCard:     true,
	domain.MethodCash:     true,
	domain.MethodTransfer: true,
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	Lots     lotdomain.Service
	Sessions sessiondomain.Service
	Plans    plandomain.Service
	Ledger   ledgerdomain.Service
	Outbox   *events.Outbox
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	taxRate  float64
	lots     lotdomain.Service
	sessions sessiondomain.Service
	plans    plandomain.Service
	ledger   ledgerdomain.Service
	outbox   *events.Outbox
}

func NewService(p Params) domain.Service {
	taxRate := p.Cfg.Billing.TaxRate
	if taxRate <= 0 {
		taxRate = billing.DefaultTaxRate
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		taxRate:  taxRate,
		lots:     p.Lots,
		sessions: p.Sessions,
		plans:    p.Plans,
		ledger:   p.Ledger,
		outbox:   p.Outbox,
	}
}

func (s *Service) Process(ctx context.Context, req domain.ProcessRequest) (*domain.Receipt, error) {
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = domain.MethodCard
	}
	if !validMethods[method] {
		return nil, domain.ErrInvalidMethod
	}

	session, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != req.UserID {
		return nil, domain.ErrNotSessionUser
	}
	if session.Status != sessiondomain.StatusActive {
		return nil, sessiondomain.ErrNotActive
	}

	rate, err := s.lots.RateCents(ctx, session.LotID)
	if err != nil {
		return nil, err
	}
	discount, err := s.plans.DiscountFor(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	hours := billing.BillableHours(session.EntryTime, now)
	quote, err := billing.NewQuote(rate, hours, s.taxRate, discount)
	if err != nil {
		return nil, err
	}

	record := domain.Payment{
		ID:            s.genID.Generate(),
		SessionID:     session.ID,
		UserID:        session.UserID,
		TransactionID: newTransactionID(now),
		SubtotalCents: quote.SubtotalCents,
		TaxCents:      quote.TaxCents,
		DiscountCents: quote.DiscountCents,
		TotalCents:    quote.TotalCents,
		BillableHours: quote.BillableHours,
		RateCents:     quote.HourlyRateCents,
		Method:        method,
		Provider:      domain.Provider,
		Status:        domain.StatusCompleted,
		Metadata:      paymentMetadata(session),
		Timestamp:     now,
		CreatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		// The CAS inside MarkPaid is the write that serializes concurrent
		// payment attempts; a loser rolls the whole transaction back.
		if err := s.sessions.MarkPaid(ctx, tx, session.ID, quote.TotalCents, record.ID); err != nil {
			return err
		}
		if err := s.postLedger(ctx, tx, &record); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventSessionPaid,
			Payload: events.SessionPayload{
				SessionID:   session.ID.String(),
				UserID:      session.UserID.String(),
				LotID:       session.LotID.String(),
				PaymentID:   record.ID.String(),
				AmountCents: quote.TotalCents,
			}.ToMap(),
			DedupeKey: fmt.Sprintf("session_paid:%s", session.ID),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment processed",
		zap.String("payment_id", record.ID.String()),
		zap.String("session_id", session.ID.String()),
		zap.Int64("total_cents", quote.TotalCents),
	)
	return &domain.Receipt{
		PaymentID:     record.ID,
		TransactionID: record.TransactionID,
		SubtotalCents: quote.SubtotalCents,
		TaxCents:      quote.TaxCents,
		DiscountCents: quote.DiscountCents,
		TotalCents:    quote.TotalCents,
		BillableHours: quote.BillableHours,
	}, nil
}

// postLedger writes the double entry: cash takes the full charge, revenue the
// discounted subtotal, tax payable the tax.
func (s *Service) postLedger(ctx context.Context, tx *gorm.DB, payment *domain.Payment) error {
	revenue := payment.SubtotalCents - payment.DiscountCents
	if revenue < 0 {
		revenue = 0
	}
	lines := []ledgerdomain.Line{
		{AccountCode: ledgerdomain.AccountCodeCashClearing, Direction: ledgerdomain.DirectionDebit, AmountCents: payment.TotalCents},
		{AccountCode: ledgerdomain.AccountCodeRevenue, Direction: ledgerdomain.DirectionCredit, AmountCents: revenue},
		{AccountCode: ledgerdomain.AccountCodeTaxPayable, Direction: ledgerdomain.DirectionCredit, AmountCents: payment.TaxCents},
	}
	return s.ledger.CreateEntry(ctx, tx, ledgerdomain.SourceTypePayment, payment.ID, currency, payment.Timestamp, lines)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var record domain.Payment
	if err := s.db.WithContext(ctx).First(&record, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Service) ListBySession(ctx context.Context, sessionID string) ([]domain.Payment, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(sessionID))
	if err != nil || id == 0 {
		return nil, sessiondomain.ErrInvalidID
	}
	var payments []domain.Payment
	err = s.db.WithContext(ctx).
		Where("session_id = ?", id).
		Order("timestamp DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Service) RequestInvoice(ctx context.Context, input domain.InvoiceRequestInput) (*domain.InvoiceRequest, error) {
	payment, err := s.Get(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != input.UserID {
		return nil, domain.ErrNotSessionUser
	}
	taxID := strings.ToUpper(strings.TrimSpace(input.TaxID))
	businessName := strings.TrimSpace(input.BusinessName)
	if taxID == "" || businessName == "" {
		return nil, domain.ErrInvalidTaxInfo
	}

	now := s.clock.Now()
	record := domain.InvoiceRequest{
		ID:           s.genID.Generate(),
		PaymentID:    payment.ID,
		UserID:       payment.UserID,
		TaxID:        taxID,
		BusinessName: businessName,
		CFDIUse:      strings.TrimSpace(input.CFDIUse),
		Folio:        fmt.Sprintf("FAC-%d", now.UnixMilli()),
		Status:       "generated",
		CreatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Service) Summary(ctx context.Context, from, to time.Time) (*domain.RevenueSummary, error) {
	var summary domain.RevenueSummary
	err := s.db.WithContext(ctx).Raw(
		`SELECT
			COUNT(1) AS payment_count,
			COALESCE(SUM(subtotal_cents), 0) AS subtotal_cents,
			COALESCE(SUM(tax_cents), 0) AS tax_cents,
			COALESCE(SUM(discount_cents), 0) AS discount_cents,
			COALESCE(SUM(total_cents), 0) AS total_cents
		 FROM payments
		 WHERE status = ? AND timestamp >= ? AND timestamp < ?`,
		domain.StatusCompleted,
		from,
		to,
	).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	if summary.PaymentCount > 0 {
		summary.AverageTicketCents = summary.TotalCents / summary.PaymentCount
	}
	return &summary, nil
}

func newTransactionID(now time.Time) string {
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

func paymentMetadata(session *sessiondomain.SessionWithLot) datatypes.JSON {
	meta := map[string]any{
		"lot_id":         session.LotID.String(),
		"lot_name":       session.LotName,
		"vehicle_plates": session.VehiclePlates,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
