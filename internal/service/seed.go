package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/geo"
	"github.com/Cheertaboi/coupon-studio/internal/models"
)

// SeedOwnerID owns the sample coupons.
const SeedOwnerID = "demo-user"

type SeedRepo interface {
	Create(ctx context.Context, c *models.Coupon) error
	IsEmpty(ctx context.Context) (bool, error)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SampleCoupons are the demo coupons inserted into an empty store.
func SampleCoupons() []models.Coupon {
	return []models.Coupon{
		{
			Name:        "Summer Sale - 25% OFF",
			Description: "Get 25% off all summer items throughout the season!",
			Rarity:      models.RarityRare,
			Discount:    "25% OFF",
			StartDate:   day(2023, time.June, 1),
			EndDate:     day(2023, time.August, 31),
			StartTime:   "09:00",
			EndTime:     "21:00",
			Location:    geo.Point{Lat: 37.7749, Lng: -122.4194},
		},
		{
			Name:        "Buy One Get One Free - Coffee",
			Description: "Purchase any coffee and get a second one of equal or lesser value for free!",
			Rarity:      models.RarityCommon,
			Discount:    "BOGO",
			StartDate:   day(2023, time.July, 15),
			EndDate:     day(2023, time.July, 31),
			StartTime:   "07:00",
			EndTime:     "11:00",
			Location:    geo.Point{Lat: 40.7128, Lng: -74.0060},
		},
		{
			Name:        "Weekend Discount - 15% OFF",
			Description: "Save 15% on all purchases during weekends!",
			Rarity:      models.RarityCommon,
			Discount:    "15% OFF",
			StartDate:   day(2023, time.July, 1),
			EndDate:     day(2023, time.December, 31),
			StartTime:   "00:00",
			EndTime:     "23:59",
			Location:    geo.Point{Lat: 34.0522, Lng: -118.2437},
		},
	}
}

// Seed inserts SampleCoupons when the collection is empty and reports how
// many were written.
func Seed(ctx context.Context, repo SeedRepo) (int, error) {
	empty, err := repo.IsEmpty(ctx)
	if err != nil {
		return 0, fmt.Errorf("check coupons: %w", err)
	}
	if !empty {
		log.Info().Msg("coupons already present, skipping seed")
		return 0, nil
	}
	n := 0
	for _, c := range SampleCoupons() {
		c.UserID = SeedOwnerID
		if err := repo.Create(ctx, &c); err != nil {
			return n, fmt.Errorf("seed %q: %w", c.Name, err)
		}
		n++
	}
	log.Info().Int("count", n).Msg("seeded sample coupons")
	return n, nil
}
