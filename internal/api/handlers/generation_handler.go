package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/coupon-studio/internal/api/respond"
	"github.com/Cheertaboi/coupon-studio/internal/generation"
)

type ImageGenerationRequest struct {
	Prompt string `json:"prompt"`
}

type ModelGenerationRequest struct {
	ImageURL string `json:"imageUrl"`
}

// GenerationHandler starts, inspects and cancels the caller's image and
// 3D model jobs.
type GenerationHandler struct {
	registry *generation.Registry
}

func NewGenerationHandler(reg *generation.Registry) *GenerationHandler {
	return &GenerationHandler{registry: reg}
}

// StartImage handles POST /generations/image
func (h *GenerationHandler) StartImage(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req ImageGenerationRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respond.WriteBadRequest(w, "prompt is required")
		return
	}
	h.start(w, r, id.UserID, generation.KindImage, req.Prompt)
}

// StartModel handles POST /generations/model
func (h *GenerationHandler) StartModel(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req ModelGenerationRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		respond.WriteBadRequest(w, "imageUrl is required")
		return
	}
	h.start(w, r, id.UserID, generation.KindModel, req.ImageURL)
}

func (h *GenerationHandler) start(w http.ResponseWriter, r *http.Request, userID string, kind generation.Kind, input string) {
	st, err := h.registry.For(userID).Start(r.Context(), kind, input)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusAccepted, st)
}

// Status handles GET /generations/{slot}
func (h *GenerationHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	kind, err := generation.ParseKind(chi.URLParam(r, "slot"))
	if err != nil {
		respond.WriteNotFound(w, err.Error())
		return
	}
	st, ok := h.registry.For(id.UserID).Status(kind)
	if !ok {
		st = generation.Status{Kind: kind, State: generation.StateIdle}
	}
	respond.WriteJSON(w, http.StatusOK, st)
}

// Cancel handles DELETE /generations/{slot}
func (h *GenerationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	kind, err := generation.ParseKind(chi.URLParam(r, "slot"))
	if err != nil {
		respond.WriteNotFound(w, err.Error())
		return
	}
	if !h.registry.For(id.UserID).Cancel(kind) {
		respond.WriteNotFound(w, "no running "+string(kind)+" generation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
