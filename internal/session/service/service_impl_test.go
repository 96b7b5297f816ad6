package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/events"
	lotdomain "github.com/ocelon/parking/internal/lot/domain"
	lotservice "github.com/ocelon/parking/internal/lot/service"
	"github.com/ocelon/parking/internal/session/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestStartSessionClaimsSpot(t *testing.T) {
	env := setupSessionEnv(t)
	lot := env.mustCreateLot(t, 2)

	created, err := env.sessions.Start(context.Background(), domain.StartRequest{
		UserID:        env.genID.Generate(),
		LotID:         lot.ID.String(),
		VehiclePlates: "abc-1234",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if created.Status != domain.StatusActive {
		t.Fatalf("status = %s, want active", created.Status)
	}
	if created.VehiclePlates != "ABC-1234" {
		t.Fatalf("plates = %q, want uppercased", created.VehiclePlates)
	}
	if created.QRCode == "" {
		t.Fatal("expected qr code")
	}

	got, err := env.lots.GetByID(context.Background(), lot.ID.String())
	if err != nil {
		t.Fatalf("get lot: %v", err)
	}
	if got.OccupiedSpots != 1 {
		t.Fatalf("occupied = %d, want 1", got.OccupiedSpots)
	}

	var eventCount int64
	if err := env.db.Raw(`SELECT COUNT(1) FROM parking_events WHERE event_type = ?`, events.EventSessionStarted).Scan(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("events = %d, want 1", eventCount)
	}
}

func TestStartSessionRejectsFullLot(t *testing.T) {
	env := setupSessionEnv(t)
	lot := env.mustCreateLot(t, 1)

	if _, err := env.sessions.Start(context.Background(), domain.StartRequest{
		UserID: env.genID.Generate(), LotID: lot.ID.String(), VehiclePlates: "AAA-111",
	}); err != nil {
		t.Fatalf("first start: %v", err)
	}

	_, err := env.sessions.Start(context.Background(), domain.StartRequest{
		UserID: env.genID.Generate(), LotID: lot.ID.String(), VehiclePlates: "BBB-222",
	})
	if !errors.Is(err, lotdomain.ErrLotFull) {
		t.Fatalf("expected ErrLotFull, got %v", err)
	}

	var count int64
	if err := env.db.Raw(`SELECT COUNT(1) FROM sessions`).Scan(&count).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("sessions = %d, want 1 (losing start must not insert)", count)
	}
}

func TestStartSessionRejectsBadPlates(t *testing.T) {
	env := setupSessionEnv(t)
	lot := env.mustCreateLot(t, 5)

	for _, plates := range []string{"", " ", "!", "x"} {
		_, err := env.sessions.Start(context.Background(), domain.StartRequest{
			UserID: env.genID.Generate(), LotID: lot.ID.String(), VehiclePlates: plates,
		})
		if !errors.Is(err, domain.ErrInvalidPlates) {
			t.Fatalf("plates %q: expected ErrInvalidPlates, got %v", plates, err)
		}
	}
}

func TestMarkPaidIsSingleShot(t *testing.T) {
	env := setupSessionEnv(t)
	lot := env.mustCreateLot(t, 5)
	created := env.mustStart(t, lot)

	paymentA := env.genID.Generate()
	if err := env.sessions.MarkPaid(context.Background(), nil, created.ID, 6960, paymentA); err != nil {
		t.Fatalf("first pay: %v", err)
	}

	paymentB := env.genID.Generate()
	err := env.sessions.MarkPaid(context.Background(), nil, created.ID, 9999, paymentB)
	if !errors.Is(err, domain.ErrNotActive) {
		t.Fatalf("expected ErrNotActive on second pay, got %v", err)
	}

	got, err := env.sessions.Get(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want paid", got.Status)
	}
	if got.AmountCents == nil || *got.AmountCents != 6960 {
		t.Fatalf("amount = %v, want first payment's 6960", got.AmountCents)
	}
	if got.PaymentID == nil || *got.PaymentID != paymentA {
		t.Fatalf("payment_id = %v, want %s", got.PaymentID, paymentA)
	}
}

func TestValidateExitRequiresPaid(t *testing.T) {
	env := setupSessionEnv(t)
	lot := env.mustCreateLot(t, 5)
	created := env.mustStart(t, lot)

	if _, err := env.sessions.ValidateExit(context.Background(), created.ID.String()); !errors.Is(err, domain.ErrNotPaid) {
		t.Fatalf("expected ErrNotPaid from active, got %v", err)
	}

	if err := env.sessions.MarkPaid(context.Background(), nil, created.ID, 2320, env.genID.Generate()); err != nil {
		t.Fatalf("pay: %v", err)
	}

	finalized, err := env.sessions.ValidateExit(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("validate exit: %v", err)
	}
	if finalized.Status != domain.StatusFinalized {
		t.Fatalf("status = %s, want finalized", finalized.Status)
	}
	if finalized.ExitTime == nil {
		t.Fatal("expected exit_time to be set")
	}

	gotLot, err := env.lots.GetByID(context.Background(), lot.ID.String())
	if err != nil {
		t.Fatalf("get lot: %v", err)
	}
	if gotLot.OccupiedSpots != 0 {
		t.Fatalf("occupied = %d, want 0 after exit", gotLot.OccupiedSpots)
	}

	if _, err := env.sessions.ValidateExit(context.Background(), created.ID.String()); !errors.Is(err, domain.ErrNotPaid) {
		t.Fatalf("expected ErrNotPaid on repeat validate, got %v", err)
	}
}

func TestCancelRequiresActive(t *testing.T) {
	env := setupSessionEnv(t)
	lot := env.mustCreateLot(t, 5)
	created := env.mustStart(t, lot)

	cancelled, err := env.sessions.Cancel(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}

	gotLot, err := env.lots.GetByID(context.Background(), lot.ID.String())
	if err != nil {
		t.Fatalf("get lot: %v", err)
	}
	if gotLot.OccupiedSpots != 0 {
		t.Fatalf("occupied = %d, want 0 after cancel", gotLot.OccupiedSpots)
	}

	if _, err := env.sessions.Cancel(context.Background(), created.ID.String()); !errors.Is(err, domain.ErrNotActive) {
		t.Fatalf("expected ErrNotActive on repeat cancel, got %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	env := setupSessionEnv(t)
	lot := env.mustCreateLot(t, 5)
	created := env.mustStart(t, lot)

	got, err := env.sessions.Get(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.EntryTime.Equal(created.EntryTime) {
		t.Fatalf("entry_time = %v, want %v", got.EntryTime, created.EntryTime)
	}
	if got.Status != created.Status {
		t.Fatalf("status = %s, want %s", got.Status, created.Status)
	}
	if got.AmountCents != nil {
		t.Fatalf("amount = %v, want nil before payment", got.AmountCents)
	}
	if got.LotName != "Test Lot" {
		t.Fatalf("lot_name = %q", got.LotName)
	}
}

func TestListByUserOrdersByEntryDesc(t *testing.T) {
	env := setupSessionEnv(t)
	lot := env.mustCreateLot(t, 5)
	userID := env.genID.Generate()

	first, err := env.sessions.Start(context.Background(), domain.StartRequest{
		UserID: userID, LotID: lot.ID.String(), VehiclePlates: "AAA-111",
	})
	if err != nil {
		t.Fatalf("start first: %v", err)
	}
	env.advance(time.Minute)
	second, err := env.sessions.Start(context.Background(), domain.StartRequest{
		UserID: userID, LotID: lot.ID.String(), VehiclePlates: "BBB-222",
	})
	if err != nil {
		t.Fatalf("start second: %v", err)
	}

	sessions, err := env.sessions.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len = %d, want 2", len(sessions))
	}
	if sessions[0].ID != second.ID || sessions[1].ID != first.ID {
		t.Fatal("expected newest session first")
	}
}

type sessionEnv struct {
	db       *gorm.DB
	genID    *snowflake.Node
	clock    *mutableClock
	lots     lotdomain.Service
	sessions domain.Service
}

type mutableClock struct{ now time.Time }

func (c *mutableClock) Now() time.Time { return c.now }

func (e *sessionEnv) advance(d time.Duration) { e.clock.now = e.clock.now.Add(d) }

func (e *sessionEnv) mustCreateLot(t *testing.T, spots int) *lotdomain.ParkingLot {
	t.Helper()
	lot, err := e.lots.Create(context.Background(), lotdomain.CreateLotRequest{
		Name:            "Test Lot",
		Address:         "Calle 1",
		Latitude:        19.4326,
		Longitude:       -99.1332,
		TotalSpots:      spots,
		HourlyRateCents: 2000,
	})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	return lot
}

func (e *sessionEnv) mustStart(t *testing.T, lot *lotdomain.ParkingLot) *domain.Session {
	t.Helper()
	created, err := e.sessions.Start(context.Background(), domain.StartRequest{
		UserID:        e.genID.Generate(),
		LotID:         lot.ID.String(),
		VehiclePlates: "ABC-1234",
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return created
}

func setupSessionEnv(t *testing.T) *sessionEnv {
	t.Helper()
	db := setupSessionTestDB(t)
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := &mutableClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	lots := lotservice.NewService(lotservice.Params{DB: db, Log: zap.NewNop(), GenID: node})
	sessions := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Lots: lots, Outbox: events.NewOutbox(db, node)})
	return &sessionEnv{db: db, genID: node, clock: clk, lots: lots, sessions: sessions}
}

func setupSessionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS parking_lots (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			total_spots INTEGER NOT NULL,
			occupied_spots INTEGER NOT NULL DEFAULT 0,
			hourly_rate_cents BIGINT NOT NULL,
			open_time TEXT NOT NULL DEFAULT '00:00',
			close_time TEXT NOT NULL DEFAULT '24:00',
			amenities TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			user_id BIGINT NOT NULL,
			lot_id BIGINT NOT NULL,
			vehicle_plates TEXT NOT NULL,
			qr_code TEXT NOT NULL,
			entry_time DATETIME NOT NULL,
			exit_time DATETIME,
			status TEXT NOT NULL,
			amount_cents BIGINT,
			payment_id BIGINT,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS parking_events (
			id INTEGER PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			dedupe_key TEXT,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_parking_events_dedupe ON parking_events (dedupe_key)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}
