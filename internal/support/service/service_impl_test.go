package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/clock"
	"github.com/ocelon/parking/internal/support/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestCreateTicketNumbersSequentially(t *testing.T) {
	svc, _ := setupSupportService(t)
	node := mustNode(t)

	first, err := svc.Create(context.Background(), domain.CreateTicketRequest{
		UserID: node.Generate(), Category: "payments", Subject: "Charge looks wrong", Description: "I was charged twice",
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(context.Background(), domain.CreateTicketRequest{
		UserID: node.Generate(), Category: "app", Subject: "QR not loading", Description: "Spinner forever",
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if first.TicketNumber != "TKT-2025-00001" {
		t.Fatalf("first number = %s", first.TicketNumber)
	}
	if second.TicketNumber != "TKT-2025-00002" {
		t.Fatalf("second number = %s", second.TicketNumber)
	}
	if first.Status != domain.StatusOpen || first.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected defaults: %s/%s", first.Status, first.Priority)
	}
	if !first.SLADeadline.Equal(first.CreatedAt.Add(domain.SLAWindow)) {
		t.Fatalf("sla = %v, want created+2h", first.SLADeadline)
	}

	var thread []domain.Message
	if err := json.Unmarshal(first.Messages, &thread); err != nil {
		t.Fatalf("unmarshal thread: %v", err)
	}
	if len(thread) != 1 || thread[0].Author != domain.AuthorUser {
		t.Fatalf("unexpected thread: %+v", thread)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _ := setupSupportService(t)
	node := mustNode(t)

	cases := []struct {
		name string
		req  domain.CreateTicketRequest
		want error
	}{
		{"no subject", domain.CreateTicketRequest{UserID: node.Generate(), Category: "x", Description: "y"}, domain.ErrMissingSubject},
		{"no category", domain.CreateTicketRequest{UserID: node.Generate(), Subject: "x", Description: "y"}, domain.ErrMissingCategory},
		{"no description", domain.CreateTicketRequest{UserID: node.Generate(), Subject: "x", Category: "y"}, domain.ErrMissingBody},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestReplyAppendsToThread(t *testing.T) {
	svc, _ := setupSupportService(t)
	node := mustNode(t)

	ticket, err := svc.Create(context.Background(), domain.CreateTicketRequest{
		UserID: node.Generate(), Category: "payments", Subject: "s", Description: "first message",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Reply(context.Background(), ticket.ID.String(), domain.AuthorSupport, "We are on it")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	var thread []domain.Message
	if err := json.Unmarshal(updated.Messages, &thread); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(thread) != 2 {
		t.Fatalf("thread len = %d, want 2", len(thread))
	}
	if thread[1].Author != domain.AuthorSupport || thread[1].Body != "We are on it" {
		t.Fatalf("unexpected last message: %+v", thread[1])
	}

	if _, err := svc.Reply(context.Background(), ticket.ID.String(), "stranger", "hi"); !errors.Is(err, domain.ErrInvalidAuthor) {
		t.Fatalf("expected ErrInvalidAuthor, got %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := setupSupportService(t)
	node := mustNode(t)

	ticket, err := svc.Create(context.Background(), domain.CreateTicketRequest{
		UserID: node.Generate(), Category: "app", Subject: "s", Description: "d",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), ticket.ID.String(), domain.StatusClosed); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition open->closed, got %v", err)
	}

	inProgress, err := svc.UpdateStatus(context.Background(), ticket.ID.String(), domain.StatusInProgress)
	if err != nil {
		t.Fatalf("open->in_progress: %v", err)
	}
	if inProgress.Status != domain.StatusInProgress {
		t.Fatalf("status = %s", inProgress.Status)
	}

	resolved, err := svc.UpdateStatus(context.Background(), ticket.ID.String(), domain.StatusResolved)
	if err != nil {
		t.Fatalf("in_progress->resolved: %v", err)
	}
	if resolved.ResolvedAt == nil {
		t.Fatal("expected resolved_at to be stamped")
	}

	closed, err := svc.UpdateStatus(context.Background(), ticket.ID.String(), domain.StatusClosed)
	if err != nil {
		t.Fatalf("resolved->closed: %v", err)
	}
	if closed.Status != domain.StatusClosed {
		t.Fatalf("status = %s", closed.Status)
	}

	if _, err := svc.Reply(context.Background(), ticket.ID.String(), domain.AuthorUser, "reopen?"); !errors.Is(err, domain.ErrTicketClosed) {
		t.Fatalf("expected ErrTicketClosed, got %v", err)
	}
}

func TestStatsGroupsByStatus(t *testing.T) {
	svc, _ := setupSupportService(t)
	node := mustNode(t)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), domain.CreateTicketRequest{
			UserID: node.Generate(), Category: "app", Subject: "s", Description: "d",
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Status != domain.StatusOpen || stats[0].Count != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupSupportService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS support_tickets (
			id INTEGER PRIMARY KEY,
			ticket_number TEXT NOT NULL UNIQUE,
			user_id BIGINT NOT NULL,
			category TEXT NOT NULL,
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			subject TEXT NOT NULL,
			messages TEXT NOT NULL,
			assigned_to BIGINT,
			sla_deadline DATETIME NOT NULL,
			resolved_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create support_tickets: %v", err)
	}

	clk := clock.FixedClock{Instant: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: mustNode(t), Clock: clk})
	return svc, db
}
