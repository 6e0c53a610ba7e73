package handlers

import (
	"net/http"

	"github.com/Cheertaboi/coupon-studio/internal/api/respond"
	"github.com/Cheertaboi/coupon-studio/internal/presence"
	"github.com/Cheertaboi/coupon-studio/internal/service"
)

type SweepResponse struct {
	MarkedOffline int `json:"markedOffline"`
}

// SystemHandler serves health, permission diagnostics and maintenance.
type SystemHandler struct {
	permissions *service.PermissionService
	presence    *presence.Service
}

func NewSystemHandler(perms *service.PermissionService, p *presence.Service) *SystemHandler {
	return &SystemHandler{permissions: perms, presence: p}
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CheckPermissions handles GET /permissions/check
func (h *SystemHandler) CheckPermissions(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, h.permissions.Check(r.Context()))
}

// Sweep handles POST /admin/sweep
func (h *SystemHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.presence.SweepStale(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, SweepResponse{MarkedOffline: n})
}
