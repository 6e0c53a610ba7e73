package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Cheertaboi/coupon-studio/internal/geo"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityUltraRare Rarity = "ultra rare"
)

const (
	DefaultStartTime = "00:00"
	DefaultEndTime   = "23:59"
)

// ParseRarity accepts the stored spelling plus the hyphenated form.
func ParseRarity(s string) (Rarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "common":
		return RarityCommon, nil
	case "uncommon":
		return RarityUncommon, nil
	case "rare":
		return RarityRare, nil
	case "ultra rare", "ultra-rare", "ultra_rare":
		return RarityUltraRare, nil
	}
	return "", fmt.Errorf("%w: unknown rarity %q", ErrValidation, s)
}

type Coupon struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Rarity      Rarity    `json:"rarity"`
	Discount    string    `json:"discount"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Location    geo.Point `json:"location"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	ImagePrompt string    `json:"imagePrompt,omitempty"`
	ModelURL    string    `json:"modelUrl,omitempty"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Window returns the inclusive validity window. The end bound covers the
// whole last minute of EndTime.
func (c Coupon) Window() (start, end time.Time, err error) {
	sh, sm, err := ParseClock(orDefault(c.StartTime, DefaultStartTime))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	eh, em, err := ParseClock(orDefault(c.EndTime, DefaultEndTime))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	sy, smo, sd := c.StartDate.Date()
	ey, emo, ed := c.EndDate.Date()
	start = time.Date(sy, smo, sd, sh, sm, 0, 0, c.StartDate.Location())
	end = time.Date(ey, emo, ed, eh, em, 59, 999999999, c.EndDate.Location())
	return start, end, nil
}

// IsActive reports whether t falls inside the validity window.
func (c Coupon) IsActive(t time.Time) bool {
	start, end, err := c.Window()
	if err != nil {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time %q must be HH:MM", ErrValidation, s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: invalid hour in %q", ErrValidation, s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: invalid minute in %q", ErrValidation, s)
	}
	return hour, minute, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// CouponView is the read model returned by the API.
type CouponView struct {
	Coupon
	Active bool `json:"active"`
}
