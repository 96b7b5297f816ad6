package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/auth/password"
	lotdomain "github.com/ocelon/parking/internal/lot/domain"
	userdomain "github.com/ocelon/parking/internal/user/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@ocelon.mx"
	defaultAdminPassword = "change-me-now"
	defaultAdminName     = "Ocelon Admin"
)

// EnsureDefaultAdmin creates the bootstrap admin account when none exists.
func EnsureDefaultAdmin(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&userdomain.User{}).
			Where("role = ?", userdomain.RoleAdmin).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hashed, err := password.Hash(defaultAdminPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		admin := userdomain.User{
			ID:           node.Generate(),
			Email:        defaultAdminEmail,
			PasswordHash: hashed,
			Role:         userdomain.RoleAdmin,
			Status:       userdomain.UserStatusActive,
			FullName:     defaultAdminName,
			CurrentPlan:  "basic",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.Create(&admin).Error
	})
}

// EnsureDemoLots seeds a handful of lots so a fresh install has something to
// show on the map. Skipped when any lot already exists.
func EnsureDemoLots(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	demo := []lotdomain.ParkingLot{
		{
			Name:            "Centro Histórico",
			Address:         "Av. Juárez 100, Centro",
			Latitude:        19.4326,
			Longitude:       -99.1332,
			TotalSpots:      120,
			HourlyRateCents: 2000,
			Amenities:       datatypes.JSON(`["covered","security"]`),
		},
		{
			Name:            "Polanco Plaza",
			Address:         "Av. Presidente Masaryk 29",
			Latitude:        19.4319,
			Longitude:       -99.1937,
			TotalSpots:      80,
			HourlyRateCents: 3500,
			Amenities:       datatypes.JSON(`["covered","ev_charging","valet"]`),
		},
		{
			Name:            "Aeropuerto T1",
			Address:         "Capitán Carlos León s/n",
			Latitude:        19.4363,
			Longitude:       -99.0721,
			TotalSpots:      300,
			HourlyRateCents: 4500,
			Amenities:       datatypes.JSON(`["24h","shuttle"]`),
		},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&lotdomain.ParkingLot{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		for i := range demo {
			demo[i].ID = node.Generate()
			demo[i].OpenTime = "00:00"
			demo[i].CloseTime = "24:00"
			demo[i].Status = lotdomain.LotStatusActive
			demo[i].CreatedAt = now
			demo[i].UpdatedAt = now
			if err := tx.Create(&demo[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
