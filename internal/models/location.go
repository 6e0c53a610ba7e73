package models

import (
	"time"

	"github.com/Cheertaboi/coupon-studio/internal/geo"
)

// UserLocation is the per-user presence record.
type UserLocation struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Location    geo.Point `json:"location"`
	IsSharing   bool      `json:"isSharing"`
	IsOnline    bool      `json:"isOnline"`
	LastUpdated time.Time `json:"lastUpdated"`
}
