package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/clock"
	"github.com/ocelon/parking/internal/support/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultListLimit = 100

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("support.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTicketRequest) (*domain.Ticket, error) {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, domain.ErrMissingSubject
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, domain.ErrMissingCategory
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, domain.ErrMissingBody
	}
	priority := req.Priority
	switch priority {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
	default:
		priority = domain.PriorityMedium
	}

	now := s.clock.Now()
	thread, err := marshalThread([]domain.Message{{
		Author:    domain.AuthorUser,
		Body:      description,
		Timestamp: now,
	}})
	if err != nil {
		return nil, err
	}

	ticket := domain.Ticket{
		ID:          s.genID.Generate(),
		UserID:      req.UserID,
		Category:    category,
		Priority:    priority,
		Status:      domain.StatusOpen,
		Subject:     subject,
		Messages:    thread,
		SLADeadline: now.Add(domain.SLAWindow),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.nextTicketNumber(ctx, tx, now)
		if err != nil {
			return err
		}
		ticket.TicketNumber = number
		return tx.Create(&ticket).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket created",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("user_id", req.UserID.String()),
	)
	return &ticket, nil
}

// nextTicketNumber allocates TKT-<year>-<seq> from the per-year count; the
// unique index on ticket_number backstops a concurrent allocation.
func (s *Service) nextTicketNumber(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	prefix := fmt.Sprintf("TKT-%d-", now.Year())
	var count int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM support_tickets WHERE ticket_number LIKE ?`,
		prefix+"%",
	).Scan(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	ticketID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, ticketID)
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Service) Reply(ctx context.Context, id, author, body string) (*domain.Ticket, error) {
	ticketID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if author != domain.AuthorUser && author != domain.AuthorSupport {
		return nil, domain.ErrInvalidAuthor
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrMissingBody
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticket, err := s.load(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status == domain.StatusClosed {
			return domain.ErrTicketClosed
		}

		var thread []domain.Message
		if len(ticket.Messages) > 0 {
			if err := json.Unmarshal(ticket.Messages, &thread); err != nil {
				return err
			}
		}
		thread = append(thread, domain.Message{Author: author, Body: body, Timestamp: now})
		raw, err := marshalThread(thread)
		if err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE support_tickets SET messages = ?, updated_at = ? WHERE id = ?`,
			raw, now, ticketID,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, ticketID)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	ticketID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticket, err := s.load(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(ticket.Status, status) {
			return domain.ErrInvalidTransition
		}

		updates := map[string]any{"status": status, "updated_at": now}
		if status == domain.StatusResolved {
			updates["resolved_at"] = now
		}
		// Gate on the status we read so a concurrent move loses cleanly.
		result := tx.Model(&domain.Ticket{}).
			Where("id = ? AND status = ?", ticketID, ticket.Status).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, ticketID)
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Ticket, error) {
	query := s.db.WithContext(ctx).Model(&domain.Ticket{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	var tickets []domain.Ticket
	if err := query.Order("created_at DESC").Limit(limit).Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Service) Stats(ctx context.Context) ([]domain.StatusCount, error) {
	var stats []domain.StatusCount
	err := s.db.WithContext(ctx).Raw(
		`SELECT status, COUNT(1) AS count
		 FROM support_tickets
		 GROUP BY status
		 ORDER BY status`,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := db.WithContext(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func marshalThread(thread []domain.Message) (datatypes.JSON, error) {
	raw, err := json.Marshal(thread)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
