package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/coupon-studio/internal/api/respond"
	"github.com/Cheertaboi/coupon-studio/internal/geo"
	"github.com/Cheertaboi/coupon-studio/internal/models"
	"github.com/Cheertaboi/coupon-studio/internal/service"
)

// --- Request / Response DTOs ---

type CouponRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Rarity      string           `json:"rarity"`
	Discount    string           `json:"discount"`
	StartDate   string           `json:"startDate"` // YYYY-MM-DD or RFC3339
	EndDate     string           `json:"endDate"`
	StartTime   string           `json:"startTime"`
	EndTime     string           `json:"endTime"`
	Location    *LocationRequest `json:"location"`
	ImageURL    string           `json:"imageUrl"`
	ImagePrompt string           `json:"imagePrompt"`
	ModelURL    string           `json:"modelUrl"`
}

type CouponPatchRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Rarity      *string          `json:"rarity"`
	Discount    *string          `json:"discount"`
	StartDate   *string          `json:"startDate"`
	EndDate     *string          `json:"endDate"`
	StartTime   *string          `json:"startTime"`
	EndTime     *string          `json:"endTime"`
	Location    *LocationRequest `json:"location"`
	ImageURL    *string          `json:"imageUrl"`
	ImagePrompt *string          `json:"imagePrompt"`
	ModelURL    *string          `json:"modelUrl"`
}

// LocationRequest is a coupon location. Both coordinates must be sent.
type LocationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type CouponListResponse struct {
	Coupons []models.CouponView `json:"coupons"`
}

// --- Handler struct & constructor ---

type CouponHandler struct {
	service *service.CouponService
}

func NewCouponHandler(svc *service.CouponService) *CouponHandler {
	return &CouponHandler{service: svc}
}

// --- Helpers ---

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid body: %v", models.ErrValidation, err)
	}
	return nil
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", models.ErrValidation, field)
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s; use YYYY-MM-DD or RFC3339", models.ErrValidation, field)
	}
	return t, nil
}

// point returns nil when no location was sent.
func (l *LocationRequest) point() (*geo.Point, error) {
	if l == nil {
		return nil, nil
	}
	if l.Lat == nil || l.Lng == nil {
		return nil, fmt.Errorf("%w: location.lat and location.lng are required", models.ErrValidation)
	}
	return &geo.Point{Lat: *l.Lat, Lng: *l.Lng}, nil
}

func (req CouponRequest) input() (service.CouponInput, error) {
	loc, err := req.Location.point()
	if err != nil {
		return service.CouponInput{}, err
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return service.CouponInput{}, err
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		return service.CouponInput{}, err
	}
	return service.CouponInput{
		Name:        req.Name,
		Description: req.Description,
		Rarity:      req.Rarity,
		Discount:    req.Discount,
		StartDate:   start,
		EndDate:     end,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    loc,
		ImageURL:    req.ImageURL,
		ImagePrompt: req.ImagePrompt,
		ModelURL:    req.ModelURL,
	}, nil
}

func (req CouponPatchRequest) patch() (service.CouponPatch, error) {
	loc, err := req.Location.point()
	if err != nil {
		return service.CouponPatch{}, err
	}
	p := service.CouponPatch{
		Name:        req.Name,
		Description: req.Description,
		Rarity:      req.Rarity,
		Discount:    req.Discount,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    loc,
		ImageURL:    req.ImageURL,
		ImagePrompt: req.ImagePrompt,
		ModelURL:    req.ModelURL,
	}
	if req.StartDate != nil {
		t, err := parseDate("startDate", *req.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = &t
	}
	if req.EndDate != nil {
		t, err := parseDate("endDate", *req.EndDate)
		if err != nil {
			return p, err
		}
		p.EndDate = &t
	}
	return p, nil
}

// --- Handlers ---

// List handles GET /coupons
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.service.List(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, CouponListResponse{Coupons: coupons})
}

// Create handles POST /coupons
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	view, err := h.service.Create(r.Context(), in)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, view)
}

// Get handles GET /coupons/{id}
func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, view)
}

// Replace handles PUT /coupons/{id}
func (h *CouponHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	view, err := h.service.Replace(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, view)
}

// Patch handles PATCH /coupons/{id}
func (h *CouponHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var req CouponPatchRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	p, err := req.patch()
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	view, err := h.service.Patch(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /coupons/{id}
func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
