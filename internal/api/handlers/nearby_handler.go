package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/api/respond"
	"github.com/Cheertaboi/coupon-studio/internal/geo"
	"github.com/Cheertaboi/coupon-studio/internal/models"
	"github.com/Cheertaboi/coupon-studio/internal/nearby"
	"github.com/Cheertaboi/coupon-studio/internal/presence"
)

type NearbyResponse struct {
	Users []models.NearbyUser `json:"users"`
}

type NearbyHandler struct {
	watcher  *nearby.Watcher
	presence *presence.Service
}

func NewNearbyHandler(w *nearby.Watcher, p *presence.Service) *NearbyHandler {
	return &NearbyHandler{watcher: w, presence: p}
}

// options resolves the centre from lat/lng query parameters, falling back
// to the caller's shared location.
func (h *NearbyHandler) options(r *http.Request, userID string) (nearby.Options, error) {
	q := r.URL.Query()
	opts := nearby.Options{UserID: userID}

	if v := q.Get("radius"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			return opts, fmt.Errorf("%w: radius must be a positive number of kilometres", models.ErrValidation)
		}
		opts.RadiusKm = radius
	}

	latS, lngS := q.Get("lat"), q.Get("lng")
	if latS != "" || lngS != "" {
		lat, errLat := strconv.ParseFloat(latS, 64)
		lng, errLng := strconv.ParseFloat(lngS, 64)
		if errLat != nil || errLng != nil {
			return opts, fmt.Errorf("%w: lat and lng must both be numbers", models.ErrValidation)
		}
		opts.Center = geo.Point{Lat: lat, Lng: lng}
		return opts, nil
	}

	loc, err := h.presence.Location(r.Context(), userID)
	if errors.Is(err, models.ErrNotFound) {
		return opts, fmt.Errorf("%w: share your location or pass lat and lng", models.ErrValidation)
	}
	if err != nil {
		return opts, err
	}
	opts.Center = loc.Location
	return opts, nil
}

// view applies the caller's criteria and then hides every field the
// listed users keep private.
func view(users []models.NearbyUser, c nearby.Criteria) []models.NearbyUser {
	matched := nearby.Filter(users, c)
	out := make([]models.NearbyUser, 0, len(matched))
	for _, u := range matched {
		out = append(out, u.Redacted())
	}
	return out
}

// Snapshot handles GET /nearby
func (h *NearbyHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	opts, err := h.options(r, id.UserID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	users, err := h.watcher.Snapshot(r.Context(), opts)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, NearbyResponse{Users: view(users, nearby.ParseCriteria(r.URL.Query()))})
}

// Stream handles GET /nearby/stream. Every snapshot is sent as one
// server-sent event; a slow client only ever sees the latest one.
func (h *NearbyHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	opts, err := h.options(r, id.UserID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	criteria := nearby.ParseCriteria(r.URL.Query())

	updates := make(chan []models.NearbyUser, 1)
	sub := h.watcher.Subscribe(r.Context(), opts, func(users []models.NearbyUser) {
		select {
		case <-updates:
		default:
		}
		updates <- users
	})
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case users := <-updates:
			payload, err := json.Marshal(NearbyResponse{Users: view(users, criteria)})
			if err != nil {
				log.Error().Err(err).Msg("encode nearby event")
				return
			}
			if _, err := fmt.Fprintf(w, "event: nearby\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
