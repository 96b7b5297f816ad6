package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// LotStatus marks a lot as bookable or retired. Lots are never hard-deleted.
type LotStatus string

const (
	LotStatusActive   LotStatus = "active"
	LotStatusInactive LotStatus = "inactive"
)

// ParkingLot is the canonical lot record. The legacy dual-name scheme from the
// v1 data model is folded into these columns at migration time.
type ParkingLot struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"type:text;not null" json:"name"`
	Address         string         `gorm:"type:text;not null" json:"address"`
	Latitude        float64        `gorm:"not null;default:0" json:"latitude"`
	Longitude       float64        `gorm:"not null;default:0" json:"longitude"`
	TotalSpots      int            `gorm:"not null" json:"total_spots"`
	OccupiedSpots   int            `gorm:"not null;default:0" json:"occupied_spots"`
	HourlyRateCents int64          `gorm:"not null" json:"hourly_rate_cents"`
	OpenTime        string         `gorm:"type:text;not null;default:'00:00'" json:"open_time"`
	CloseTime       string         `gorm:"type:text;not null;default:'24:00'" json:"close_time"`
	Amenities       datatypes.JSON `gorm:"type:jsonb" json:"amenities"`
	Status          LotStatus      `gorm:"type:text;not null;index" json:"status"`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ParkingLot) TableName() string { return "parking_lots" }

// AvailableSpots returns the free capacity, floored at zero.
func (l ParkingLot) AvailableSpots() int {
	free := l.TotalSpots - l.OccupiedSpots
	if free < 0 {
		return 0
	}
	return free
}

// NearbyLot is a lot annotated with its distance from the search origin.
type NearbyLot struct {
	ParkingLot
	DistanceKm float64 `json:"distance_km"`
}

type CreateLotRequest struct {
	Name            string
	Address         string
	Latitude        float64
	Longitude       float64
	TotalSpots      int
	HourlyRateCents int64
	OpenTime        string
	CloseTime       string
	Amenities       []string
}

type UpdateLotRequest struct {
	Name            *string
	Address         *string
	Latitude        *float64
	Longitude       *float64
	TotalSpots      *int
	HourlyRateCents *int64
	OpenTime        *string
	CloseTime       *string
	Amenities       []string
	Status          *LotStatus
}

type NearbyRequest struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}
