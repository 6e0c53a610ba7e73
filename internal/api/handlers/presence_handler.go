package handlers

import (
	"net/http"

	"github.com/Cheertaboi/coupon-studio/internal/api/respond"
	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/geo"
	"github.com/Cheertaboi/coupon-studio/internal/models"
	"github.com/Cheertaboi/coupon-studio/internal/presence"
)

type ShareLocationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type OnlineRequest struct {
	Online *bool `json:"online"`
}

type ProfileRequest struct {
	ModularInfo models.ModularInfo `json:"modularInfo"`
	Privacy     models.Privacy     `json:"privacy"`
}

// PresenceHandler serves the caller's location and profile.
type PresenceHandler struct {
	presence *presence.Service
}

func NewPresenceHandler(p *presence.Service) *PresenceHandler {
	return &PresenceHandler{presence: p}
}

func caller(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, models.ErrAuthRequired.Error())
	}
	return id, ok
}

// Share handles PUT /location/share
func (h *PresenceHandler) Share(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req ShareLocationRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		respond.WriteBadRequest(w, "lat and lng are required")
		return
	}
	p := geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		respond.WriteBadRequest(w, "lat or lng out of range")
		return
	}
	loc, err := h.presence.Share(r.Context(), id, p)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, loc)
}

// Stop handles POST /location/stop
func (h *PresenceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.presence.Stop(r.Context(), id.UserID); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetOnline handles PUT /location/online
func (h *PresenceHandler) SetOnline(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req OnlineRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if req.Online == nil {
		respond.WriteBadRequest(w, "online is required")
		return
	}
	if err := h.presence.SetOnline(r.Context(), id.UserID, *req.Online); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /profile. A user who never saved one gets an
// empty profile with everything hidden.
func (h *PresenceHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	p, err := h.presence.Profile(r.Context(), id.UserID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if p == nil {
		p = &models.UserProfile{UserID: id.UserID}
	}
	respond.WriteJSON(w, http.StatusOK, p)
}

// SaveProfile handles PUT /profile
func (h *PresenceHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req ProfileRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	p, err := h.presence.SaveProfile(r.Context(), id.UserID, req.ModularInfo, req.Privacy)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, p)
}
