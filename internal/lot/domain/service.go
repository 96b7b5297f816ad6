package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service manages parking lots and their occupancy.
type Service interface {
	Create(ctx context.Context, req CreateLotRequest) (*ParkingLot, error)
	Update(ctx context.Context, id string, req UpdateLotRequest) error
	Deactivate(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*ParkingLot, error)
	ListActive(ctx context.Context) ([]ParkingLot, error)
	ListAll(ctx context.Context) ([]ParkingLot, error)
	Nearby(ctx context.Context, req NearbyRequest) ([]NearbyLot, error)
	SetOccupancy(ctx context.Context, id string, occupiedSpots int) (*ParkingLot, error)

	// RateCents resolves a lot's hourly rate for quoting; cached.
	RateCents(ctx context.Context, id snowflake.ID) (int64, error)

	// Acquire atomically claims one spot inside the caller's transaction.
	// It fails with ErrLotFull when the lot has no free capacity and with
	// ErrLotInactive when the lot is not bookable.
	Acquire(ctx context.Context, tx *gorm.DB, id snowflake.ID) error

	// Release atomically frees one spot inside the caller's transaction.
	Release(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
}

var (
	ErrNotFound        = errors.New("lot_not_found")
	ErrInvalidID       = errors.New("invalid_lot_id")
	ErrInvalidName     = errors.New("invalid_lot_name")
	ErrInvalidAddress  = errors.New("invalid_lot_address")
	ErrInvalidCapacity = errors.New("invalid_lot_capacity")
	ErrInvalidRate     = errors.New("invalid_hourly_rate")
	ErrInvalidLocation = errors.New("invalid_location")
	ErrLotFull         = errors.New("lot_full")
	ErrLotInactive     = errors.New("lot_inactive")
	ErrOccupancyBounds = errors.New("occupancy_exceeds_capacity")
)
