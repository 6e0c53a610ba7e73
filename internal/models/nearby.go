package models

import (
	"time"

	"github.com/Cheertaboi/coupon-studio/internal/geo"
)

// NearbyUser is the composed view of another user inside the caller's
// radius. Distance is in kilometres, rounded to two decimals.
type NearbyUser struct {
	ID          string      `json:"id"`
	Location    geo.Point   `json:"location"`
	IsOnline    bool        `json:"isOnline"`
	LastSeen    time.Time   `json:"lastSeen"`
	Distance    float64     `json:"distance"`
	DisplayName string      `json:"displayName,omitempty"`
	ModularInfo ModularInfo `json:"modularInfo"`
	Privacy     Privacy     `json:"privacy"`
}

// Redacted clears every field the user has not chosen to show.
func (u NearbyUser) Redacted() NearbyUser {
	u.ModularInfo = u.ModularInfo.Visible(u.Privacy)
	return u
}
