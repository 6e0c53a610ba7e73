package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/inference"
	"github.com/Cheertaboi/coupon-studio/internal/models"
)

// PermissionRemediation is returned with every store permission failure.
const PermissionRemediation = "The document store rejected this operation. Check the store's access rules, then run GET /permissions/check to verify read and write access."

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

// WriteServiceError maps a service or store error onto a status code.
func WriteServiceError(w http.ResponseWriter, err error) {
	var apiErr *inference.APIError
	switch {
	case errors.Is(err, models.ErrValidation):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrAuthRequired):
		WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, docstore.ErrPermissionDenied):
		log.Error().Err(err).Msg("document store permission denied")
		WriteError(w, http.StatusForbidden, PermissionRemediation)
	case errors.Is(err, models.ErrForbidden):
		WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &apiErr):
		log.Error().Err(err).Int("upstream_status", apiErr.Status).Msg("inference API error")
		WriteError(w, http.StatusBadGateway, apiErr.Detail)
	default:
		log.Error().Err(err).Msg("request failed")
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}
