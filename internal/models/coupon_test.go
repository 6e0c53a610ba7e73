package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summerCoupon() Coupon {
	return Coupon{
		Name:      "Summer Sale - 25% OFF",
		Rarity:    RarityRare,
		StartDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "21:00",
	}
}

func TestCouponIsActiveBoundaries(t *testing.T) {
	c := summerCoupon()

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before start", time.Date(2023, 6, 1, 8, 59, 59, 999, time.UTC), false},
		{"at start", time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC), true},
		{"middle", time.Date(2023, 7, 15, 3, 0, 0, 0, time.UTC), true},
		{"last second of end minute", time.Date(2023, 8, 31, 21, 0, 59, 0, time.UTC), true},
		{"last nanosecond", time.Date(2023, 8, 31, 21, 0, 59, 999999999, time.UTC), true},
		{"after end", time.Date(2023, 8, 31, 21, 1, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsActive(tt.at))
		})
	}
}

func TestCouponDefaultTimesCoverWholeDays(t *testing.T) {
	c := summerCoupon()
	c.StartTime, c.EndTime = "", ""

	assert.True(t, c.IsActive(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, c.IsActive(time.Date(2023, 8, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, c.IsActive(time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCouponIsActiveFalseOnBadClock(t *testing.T) {
	c := summerCoupon()
	c.EndTime = "25:00"
	assert.False(t, c.IsActive(time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)))
}

func TestParseRarity(t *testing.T) {
	for in, want := range map[string]Rarity{
		"":           RarityCommon,
		"Common":     RarityCommon,
		"uncommon":   RarityUncommon,
		"rare":       RarityRare,
		"ultra-rare": RarityUltraRare,
		"ultra rare": RarityUltraRare,
	} {
		got, err := ParseRarity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRarity("legendary")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCouponValidate(t *testing.T) {
	c := summerCoupon()
	c.Rarity = "ultra-rare"
	c.StartTime, c.EndTime = "", ""
	require.NoError(t, c.Validate())
	assert.Equal(t, RarityUltraRare, c.Rarity)
	assert.Equal(t, DefaultStartTime, c.StartTime)
	assert.Equal(t, DefaultEndTime, c.EndTime)

	missingName := summerCoupon()
	missingName.Name = "  "
	assert.ErrorIs(t, missingName.Validate(), ErrValidation)

	reversed := summerCoupon()
	reversed.StartDate, reversed.EndDate = reversed.EndDate, reversed.StartDate
	assert.ErrorIs(t, reversed.Validate(), ErrValidation)

	noDates := summerCoupon()
	noDates.EndDate = time.Time{}
	assert.ErrorIs(t, noDates.Validate(), ErrValidation)
}

func TestCouponJSONOmitsUnsetUpdatedAt(t *testing.T) {
	c := summerCoupon()
	c.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := json.Marshal(CouponView{Coupon: c})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "updatedAt")

	c.UpdatedAt = c.CreatedAt.Add(time.Hour)
	raw, err = json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"updatedAt":"2024-01-02T04:04:05Z"`)
}
