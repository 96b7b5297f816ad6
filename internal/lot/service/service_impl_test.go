package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	lotdomain "github.com/ocelon/parking/internal/lot/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestCreateAndGetLot(t *testing.T) {
	svc := setupLotService(t)

	created, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
		Name:            "Centro Histórico",
		Address:         "Av. Juárez 100",
		Latitude:        19.4326,
		Longitude:       -99.1332,
		TotalSpots:      50,
		HourlyRateCents: 2000,
		Amenities:       []string{"covered", "ev_charging"},
	})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	if created.Status != lotdomain.LotStatusActive {
		t.Fatalf("status = %s, want active", created.Status)
	}
	if created.AvailableSpots() != 50 {
		t.Fatalf("available = %d, want 50", created.AvailableSpots())
	}

	got, err := svc.GetByID(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("get lot: %v", err)
	}
	if got.Name != "Centro Histórico" || got.HourlyRateCents != 2000 {
		t.Fatalf("unexpected lot: %+v", got)
	}
}

func TestCreateLotValidation(t *testing.T) {
	svc := setupLotService(t)

	cases := []struct {
		name string
		req  lotdomain.CreateLotRequest
		want error
	}{
		{"blank name", lotdomain.CreateLotRequest{Address: "x", TotalSpots: 1, HourlyRateCents: 100}, lotdomain.ErrInvalidName},
		{"blank address", lotdomain.CreateLotRequest{Name: "x", TotalSpots: 1, HourlyRateCents: 100}, lotdomain.ErrInvalidAddress},
		{"zero spots", lotdomain.CreateLotRequest{Name: "x", Address: "y", HourlyRateCents: 100}, lotdomain.ErrInvalidCapacity},
		{"zero rate", lotdomain.CreateLotRequest{Name: "x", Address: "y", TotalSpots: 1}, lotdomain.ErrInvalidRate},
		{"bad latitude", lotdomain.CreateLotRequest{Name: "x", Address: "y", TotalSpots: 1, HourlyRateCents: 100, Latitude: 91}, lotdomain.ErrInvalidLocation},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestAcquireRespectsCapacity(t *testing.T) {
	svc := setupLotService(t)
	lot := mustCreateLot(t, svc, 1)

	if err := svc.Acquire(context.Background(), nil, lot.ID); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := svc.Acquire(context.Background(), nil, lot.ID); !errors.Is(err, lotdomain.ErrLotFull) {
		t.Fatalf("expected ErrLotFull, got %v", err)
	}

	if err := svc.Release(context.Background(), nil, lot.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := svc.Acquire(context.Background(), nil, lot.ID); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestAcquireRejectsInactiveLot(t *testing.T) {
	svc := setupLotService(t)
	lot := mustCreateLot(t, svc, 5)

	if err := svc.Deactivate(context.Background(), lot.ID.String()); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := svc.Acquire(context.Background(), nil, lot.ID); !errors.Is(err, lotdomain.ErrLotInactive) {
		t.Fatalf("expected ErrLotInactive, got %v", err)
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	svc := setupLotService(t)
	lot := mustCreateLot(t, svc, 3)

	if err := svc.Release(context.Background(), nil, lot.ID); err != nil {
		t.Fatalf("release on empty lot: %v", err)
	}
	got, err := svc.GetByID(context.Background(), lot.ID.String())
	if err != nil {
		t.Fatalf("get lot: %v", err)
	}
	if got.OccupiedSpots != 0 {
		t.Fatalf("occupied = %d, want 0", got.OccupiedSpots)
	}
}

func TestSetOccupancyBounds(t *testing.T) {
	svc := setupLotService(t)
	lot := mustCreateLot(t, svc, 10)

	updated, err := svc.SetOccupancy(context.Background(), lot.ID.String(), 7)
	if err != nil {
		t.Fatalf("set occupancy: %v", err)
	}
	if updated.OccupiedSpots != 7 {
		t.Fatalf("occupied = %d, want 7", updated.OccupiedSpots)
	}

	if _, err := svc.SetOccupancy(context.Background(), lot.ID.String(), 11); !errors.Is(err, lotdomain.ErrOccupancyBounds) {
		t.Fatalf("expected ErrOccupancyBounds, got %v", err)
	}
	if _, err := svc.SetOccupancy(context.Background(), lot.ID.String(), -1); !errors.Is(err, lotdomain.ErrOccupancyBounds) {
		t.Fatalf("expected ErrOccupancyBounds for negative, got %v", err)
	}
}

func TestUpdateRejectsCapacityBelowOccupancy(t *testing.T) {
	svc := setupLotService(t)
	lot := mustCreateLot(t, svc, 10)

	if _, err := svc.SetOccupancy(context.Background(), lot.ID.String(), 7); err != nil {
		t.Fatalf("set occupancy: %v", err)
	}

	smaller := 5
	err := svc.Update(context.Background(), lot.ID.String(), lotdomain.UpdateLotRequest{TotalSpots: &smaller})
	if !errors.Is(err, lotdomain.ErrOccupancyBounds) {
		t.Fatalf("expected ErrOccupancyBounds when shrinking below occupancy, got %v", err)
	}

	larger := 8
	if err := svc.Update(context.Background(), lot.ID.String(), lotdomain.UpdateLotRequest{TotalSpots: &larger}); err != nil {
		t.Fatalf("shrink above occupancy: %v", err)
	}
	got, err := svc.GetByID(context.Background(), lot.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalSpots != 8 || got.OccupiedSpots != 7 {
		t.Fatalf("spots = %d/%d, want 7/8", got.OccupiedSpots, got.TotalSpots)
	}
}

func TestNearbyOrdersByDistance(t *testing.T) {
	svc := setupLotService(t)

	near, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
		Name: "Near", Address: "a", Latitude: 19.4330, Longitude: -99.1330,
		TotalSpots: 10, HourlyRateCents: 1500,
	})
	if err != nil {
		t.Fatalf("create near: %v", err)
	}
	far, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
		Name: "Far", Address: "b", Latitude: 19.4600, Longitude: -99.1600,
		TotalSpots: 10, HourlyRateCents: 1500,
	})
	if err != nil {
		t.Fatalf("create far: %v", err)
	}
	if _, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
		Name: "Elsewhere", Address: "c", Latitude: 20.6597, Longitude: -103.3496,
		TotalSpots: 10, HourlyRateCents: 1500,
	}); err != nil {
		t.Fatalf("create elsewhere: %v", err)
	}

	got, err := svc.Nearby(context.Background(), lotdomain.NearbyRequest{
		Latitude: 19.4326, Longitude: -99.1332, RadiusKm: 5,
	})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != near.ID || got[1].ID != far.ID {
		t.Fatalf("unexpected order: %s then %s", got[0].Name, got[1].Name)
	}
	if got[0].DistanceKm >= got[1].DistanceKm {
		t.Fatalf("distances not ascending: %v >= %v", got[0].DistanceKm, got[1].DistanceKm)
	}
}

func TestNearbyExcludesInactive(t *testing.T) {
	svc := setupLotService(t)
	lot := mustCreateLot(t, svc, 10)

	if err := svc.Deactivate(context.Background(), lot.ID.String()); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := svc.Nearby(context.Background(), lotdomain.NearbyRequest{
		Latitude: lot.Latitude, Longitude: lot.Longitude, RadiusKm: 5,
	})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no lots, got %d", len(got))
	}
}

func TestRateCentsCached(t *testing.T) {
	svc := setupLotService(t)
	lot := mustCreateLot(t, svc, 10)

	rate, err := svc.RateCents(context.Background(), lot.ID)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rate != 2000 {
		t.Fatalf("rate = %d, want 2000", rate)
	}

	cached, ok := svc.(*Service).rates.Get(lot.ID)
	if !ok || cached != 2000 {
		t.Fatalf("expected cached rate 2000, got %d (%v)", cached, ok)
	}
}

func mustCreateLot(t *testing.T, svc lotdomain.Service, spots int) *lotdomain.ParkingLot {
	t.Helper()
	lot, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
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

func setupLotService(t *testing.T) lotdomain.Service {
	t.Helper()
	db := setupLotTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
}

func setupLotTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
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
	).Error; err != nil {
		t.Fatalf("create parking_lots: %v", err)
	}
	return db
}
