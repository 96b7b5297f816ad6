package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/ocelon/parking/internal/clock"
	"github.com/ocelon/parking/internal/events"
	lotdomain "github.com/ocelon/parking/internal/lot/domain"
	"github.com/ocelon/parking/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var platePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 -]{1,13}$`)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Lots   lotdomain.Service
	Outbox *events.Outbox
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	lots   lotdomain.Service
	outbox *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("session.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		lots:   p.Lots,
		outbox: p.Outbox,
	}
}

func (s *Service) Start(ctx context.Context, req domain.StartRequest) (*domain.Session, error) {
	plates := strings.ToUpper(strings.TrimSpace(req.VehiclePlates))
	if !platePattern.MatchString(plates) {
		return nil, domain.ErrInvalidPlates
	}
	lotID, err := snowflake.ParseString(strings.TrimSpace(req.LotID))
	if err != nil || lotID == 0 {
		return nil, lotdomain.ErrInvalidID
	}

	now := s.clock.Now()
	record := domain.Session{
		ID:            s.genID.Generate(),
		UserID:        req.UserID,
		LotID:         lotID,
		VehiclePlates: plates,
		QRCode:        uuid.NewString(),
		EntryTime:     now,
		Status:        domain.StatusActive,
		Metadata:      startMetadata(req),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lots.Acquire(ctx, tx, lotID); err != nil {
			return err
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventSessionStarted,
			Payload: events.SessionPayload{
				SessionID: record.ID.String(),
				UserID:    record.UserID.String(),
				LotID:     lotID.String(),
			}.ToMap(),
			DedupeKey: "session_started:" + record.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session started",
		zap.String("session_id", record.ID.String()),
		zap.String("lot_id", lotID.String()),
	)
	return &record, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.SessionWithLot, error) {
	sessionID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var record domain.SessionWithLot
	result := s.db.WithContext(ctx).Raw(
		`SELECT s.*, COALESCE(l.name, '') AS lot_name, COALESCE(l.hourly_rate_cents, 0) AS hourly_rate_cents
		 FROM sessions s
		 LEFT JOIN parking_lots l ON l.id = s.lot_id
		 WHERE s.id = ?`,
		sessionID,
	).Scan(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.SessionWithLot, error) {
	var sessions []domain.SessionWithLot
	err := s.db.WithContext(ctx).Raw(
		`SELECT s.*, COALESCE(l.name, '') AS lot_name, COALESCE(l.hourly_rate_cents, 0) AS hourly_rate_cents
		 FROM sessions s
		 LEFT JOIN parking_lots l ON l.id = s.lot_id
		 WHERE s.user_id = ?
		 ORDER BY s.entry_time DESC`,
		userID,
	).Scan(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Service) ListActive(ctx context.Context) ([]domain.SessionWithLot, error) {
	var sessions []domain.SessionWithLot
	err := s.db.WithContext(ctx).Raw(
		`SELECT s.*, COALESCE(l.name, '') AS lot_name, COALESCE(l.hourly_rate_cents, 0) AS hourly_rate_cents
		 FROM sessions s
		 LEFT JOIN parking_lots l ON l.id = s.lot_id
		 WHERE s.status = ?
		 ORDER BY s.entry_time DESC`,
		domain.StatusActive,
	).Scan(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Service) MarkPaid(ctx context.Context, tx *gorm.DB, id snowflake.ID, amountCents int64, paymentID snowflake.ID) error {
	if tx == nil {
		tx = s.db
	}
	result := tx.WithContext(ctx).Exec(
		`UPDATE sessions
		 SET status = ?, amount_cents = ?, payment_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusPaid,
		amountCents,
		paymentID,
		s.clock.Now(),
		id,
		domain.StatusActive,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.transitionConflict(ctx, tx, id, domain.ErrNotActive)
	}
	return nil
}

func (s *Service) ValidateExit(ctx context.Context, id string) (*domain.Session, error) {
	sessionID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE sessions
			 SET status = ?, exit_time = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			domain.StatusFinalized,
			now,
			now,
			sessionID,
			domain.StatusPaid,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return s.transitionConflict(ctx, tx, sessionID, domain.ErrNotPaid)
		}

		owner, err := s.loadOwner(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := s.lots.Release(ctx, tx, owner.LotID); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventSessionFinalized,
			Payload: events.SessionPayload{
				SessionID: sessionID.String(),
				UserID:    owner.UserID.String(),
				LotID:     owner.LotID.String(),
			}.ToMap(),
			DedupeKey: "session_finalized:" + sessionID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session finalized", zap.String("session_id", sessionID.String()))
	return s.load(ctx, sessionID)
}

func (s *Service) Cancel(ctx context.Context, id string) (*domain.Session, error) {
	sessionID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE sessions
			 SET status = ?, exit_time = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			domain.StatusCancelled,
			now,
			now,
			sessionID,
			domain.StatusActive,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return s.transitionConflict(ctx, tx, sessionID, domain.ErrNotActive)
		}

		owner, err := s.loadOwner(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := s.lots.Release(ctx, tx, owner.LotID); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventSessionCancelled,
			Payload: events.SessionPayload{
				SessionID: sessionID.String(),
				UserID:    owner.UserID.String(),
				LotID:     owner.LotID.String(),
			}.ToMap(),
			DedupeKey: "session_cancelled:" + sessionID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session cancelled", zap.String("session_id", sessionID.String()))
	return s.load(ctx, sessionID)
}

type sessionOwner struct {
	UserID snowflake.ID
	LotID  snowflake.ID
}

func (s *Service) loadOwner(ctx context.Context, tx *gorm.DB, id snowflake.ID) (sessionOwner, error) {
	var owner sessionOwner
	err := tx.WithContext(ctx).Raw(
		`SELECT user_id, lot_id FROM sessions WHERE id = ?`, id,
	).Scan(&owner).Error
	return owner, err
}

// transitionConflict distinguishes a missing session from one in the wrong
// state after a conditional update matched no rows.
func (s *Service) transitionConflict(ctx context.Context, tx *gorm.DB, id snowflake.ID, conflict error) error {
	var count int64
	if err := tx.WithContext(ctx).Raw(`SELECT COUNT(1) FROM sessions WHERE id = ?`, id).Scan(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return conflict
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Session, error) {
	var record domain.Session
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func startMetadata(req domain.StartRequest) datatypes.JSON {
	meta := map[string]string{
		"created_by": defaultSource(req.Source),
	}
	if req.ClientIP != "" {
		meta["ip_address"] = req.ClientIP
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

func defaultSource(source string) string {
	if source == "" {
		return "web"
	}
	return source
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
