package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/cache"
	lotdomain "github.com/ocelon/parking/internal/lot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const rateCacheTTL = 30 * time.Second

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
	rates *cache.TTLCache[snowflake.ID, int64]
}

func NewService(p Params) lotdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("lot.service"),
		genID: p.GenID,
		rates: cache.NewTTLCache[snowflake.ID, int64](),
	}
}

func (s *Service) Create(ctx context.Context, req lotdomain.CreateLotRequest) (*lotdomain.ParkingLot, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, lotdomain.ErrInvalidName
	}
	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		return nil, lotdomain.ErrInvalidAddress
	}
	if req.TotalSpots <= 0 {
		return nil, lotdomain.ErrInvalidCapacity
	}
	if req.HourlyRateCents <= 0 {
		return nil, lotdomain.ErrInvalidRate
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, lotdomain.ErrInvalidLocation
	}

	now := time.Now().UTC()
	record := lotdomain.ParkingLot{
		ID:              s.genID.Generate(),
		Name:            req.Name,
		Address:         req.Address,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		TotalSpots:      req.TotalSpots,
		OccupiedSpots:   0,
		HourlyRateCents: req.HourlyRateCents,
		OpenTime:        defaultString(req.OpenTime, "00:00"),
		CloseTime:       defaultString(req.CloseTime, "24:00"),
		Amenities:       marshalAmenities(req.Amenities),
		Status:          lotdomain.LotStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Service) Update(ctx context.Context, id string, req lotdomain.UpdateLotRequest) error {
	lotID, err := parseID(id)
	if err != nil {
		return lotdomain.ErrInvalidID
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return lotdomain.ErrInvalidName
		}
		updates["name"] = name
	}
	if req.Address != nil {
		address := strings.TrimSpace(*req.Address)
		if address == "" {
			return lotdomain.ErrInvalidAddress
		}
		updates["address"] = address
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.TotalSpots != nil {
		if *req.TotalSpots <= 0 {
			return lotdomain.ErrInvalidCapacity
		}
		updates["total_spots"] = *req.TotalSpots
	}
	if req.HourlyRateCents != nil {
		if *req.HourlyRateCents <= 0 {
			return lotdomain.ErrInvalidRate
		}
		updates["hourly_rate_cents"] = *req.HourlyRateCents
	}
	if req.OpenTime != nil {
		updates["open_time"] = strings.TrimSpace(*req.OpenTime)
	}
	if req.CloseTime != nil {
		updates["close_time"] = strings.TrimSpace(*req.CloseTime)
	}
	if req.Amenities != nil {
		updates["amenities"] = marshalAmenities(req.Amenities)
	}
	if req.Status != nil {
		switch *req.Status {
		case lotdomain.LotStatusActive, lotdomain.LotStatusInactive:
			updates["status"] = *req.Status
		default:
			return lotdomain.ErrInvalidID
		}
	}

	query := s.db.WithContext(ctx).
		Model(&lotdomain.ParkingLot{}).
		Where("id = ?", lotID)
	if req.TotalSpots != nil {
		// Shrinking capacity below the current occupancy would violate the
		// occupied <= total invariant; gate the update instead of letting the
		// check constraint reject it.
		query = query.Where("occupied_spots <= ?", *req.TotalSpots)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM parking_lots WHERE id = ?`, lotID,
		).Scan(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return lotdomain.ErrNotFound
		}
		return lotdomain.ErrOccupancyBounds
	}
	s.rates.Delete(lotID)
	return nil
}

// Deactivate is the soft delete: sessions and payments keep referencing the lot.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	lotID, err := parseID(id)
	if err != nil {
		return lotdomain.ErrInvalidID
	}
	result := s.db.WithContext(ctx).
		Model(&lotdomain.ParkingLot{}).
		Where("id = ?", lotID).
		Updates(map[string]any{
			"status":     lotdomain.LotStatusInactive,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return lotdomain.ErrNotFound
	}
	s.rates.Delete(lotID)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*lotdomain.ParkingLot, error) {
	lotID, err := parseID(id)
	if err != nil {
		return nil, lotdomain.ErrInvalidID
	}
	var record lotdomain.ParkingLot
	if err := s.db.WithContext(ctx).First(&record, "id = ?", lotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lotdomain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) ListActive(ctx context.Context) ([]lotdomain.ParkingLot, error) {
	var lots []lotdomain.ParkingLot
	err := s.db.WithContext(ctx).
		Where("status = ?", lotdomain.LotStatusActive).
		Order("name ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (s *Service) ListAll(ctx context.Context) ([]lotdomain.ParkingLot, error) {
	var lots []lotdomain.ParkingLot
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (s *Service) Nearby(ctx context.Context, req lotdomain.NearbyRequest) ([]lotdomain.NearbyLot, error) {
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, lotdomain.ErrInvalidLocation
	}
	radius := req.RadiusKm
	if radius <= 0 {
		radius = 5
	}

	// Bounding-box prefilter in SQL, exact haversine in Go.
	latDelta := radius / 111.0
	lngDelta := radius / (111.0 * math.Cos(req.Latitude*math.Pi/180))

	var lots []lotdomain.ParkingLot
	err := s.db.WithContext(ctx).
		Where("status = ?", lotdomain.LotStatusActive).
		Where("latitude BETWEEN ? AND ?", req.Latitude-latDelta, req.Latitude+latDelta).
		Where("longitude BETWEEN ? AND ?", req.Longitude-lngDelta, req.Longitude+lngDelta).
		Find(&lots).Error
	if err != nil {
		return nil, err
	}

	nearby := make([]lotdomain.NearbyLot, 0, len(lots))
	for _, candidate := range lots {
		distance := haversineKm(req.Latitude, req.Longitude, candidate.Latitude, candidate.Longitude)
		if distance > radius {
			continue
		}
		nearby = append(nearby, lotdomain.NearbyLot{
			ParkingLot: candidate,
			DistanceKm: math.Round(distance*100) / 100,
		})
	}
	sort.Slice(nearby, func(i, j int) bool { return nearby[i].DistanceKm < nearby[j].DistanceKm })
	return nearby, nil
}

func (s *Service) SetOccupancy(ctx context.Context, id string, occupiedSpots int) (*lotdomain.ParkingLot, error) {
	lotID, err := parseID(id)
	if err != nil {
		return nil, lotdomain.ErrInvalidID
	}
	if occupiedSpots < 0 {
		return nil, lotdomain.ErrOccupancyBounds
	}

	result := s.db.WithContext(ctx).Exec(
		`UPDATE parking_lots
		 SET occupied_spots = ?, updated_at = ?
		 WHERE id = ? AND total_spots >= ?`,
		occupiedSpots,
		time.Now().UTC(),
		lotID,
		occupiedSpots,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		record, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if occupiedSpots > record.TotalSpots {
			return nil, lotdomain.ErrOccupancyBounds
		}
		return nil, lotdomain.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Service) RateCents(ctx context.Context, id snowflake.ID) (int64, error) {
	if rate, ok := s.rates.Get(id); ok {
		return rate, nil
	}

	var rate int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT hourly_rate_cents
		 FROM parking_lots
		 WHERE id = ?`,
		id,
	).Scan(&rate).Error
	if err != nil {
		return 0, err
	}
	if rate > 0 {
		s.rates.Set(id, rate, rateCacheTTL)
	}
	return rate, nil
}

// Acquire claims a spot with a conditional increment so two concurrent
// session-create requests against one free spot cannot both succeed.
func (s *Service) Acquire(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	if tx == nil {
		tx = s.db
	}
	result := tx.WithContext(ctx).Exec(
		`UPDATE parking_lots
		 SET occupied_spots = occupied_spots + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND occupied_spots < total_spots`,
		time.Now().UTC(),
		id,
		lotdomain.LotStatusActive,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var record lotdomain.ParkingLot
	if err := tx.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lotdomain.ErrNotFound
		}
		return err
	}
	if record.Status != lotdomain.LotStatusActive {
		return lotdomain.ErrLotInactive
	}
	return lotdomain.ErrLotFull
}

func (s *Service) Release(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx).Exec(
		`UPDATE parking_lots
		 SET occupied_spots = occupied_spots - 1, updated_at = ?
		 WHERE id = ? AND occupied_spots > 0`,
		time.Now().UTC(),
		id,
	).Error
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func marshalAmenities(amenities []string) datatypes.JSON {
	if amenities == nil {
		amenities = []string{}
	}
	raw, err := json.Marshal(amenities)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, lotdomain.ErrInvalidID
	}
	return id, nil
}
