package handlers

import (
	"net/http"
	"time"

	"github.com/markbates/goth/gothic"
	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/api/respond"
	"github.com/Cheertaboi/coupon-studio/internal/auth"
)

// Sign-in outcomes reported to the client.
const (
	OutcomeSuccess   = "success"
	OutcomeCancelled = "cancelled"
	OutcomeSignedOut = "signed_out"
)

type SignInResponse struct {
	Outcome   string         `json:"outcome"`
	Token     string         `json:"token,omitempty"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
	User      *auth.Identity `json:"user,omitempty"`
}

// AuthHandler drives the Google OAuth flow and trades its result for an
// API bearer token.
type AuthHandler struct {
	tokens  *auth.TokenIssuer
	enabled bool
}

func NewAuthHandler(tokens *auth.TokenIssuer, googleEnabled bool) *AuthHandler {
	return &AuthHandler{tokens: tokens, enabled: googleEnabled}
}

// Gothic requires the "provider" query parameter
func withProvider(r *http.Request) {
	q := r.URL.Query()
	q.Set("provider", auth.ProviderGoogle)
	r.URL.RawQuery = q.Encode()
}

// Begin handles GET /auth/google
func (h *AuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		respond.WriteError(w, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return
	}
	withProvider(r)
	gothic.BeginAuthHandler(w, r)
}

// Callback handles GET /auth/google/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("error") == "access_denied" {
		log.Info().Msg("sign-in cancelled by user")
		respond.WriteJSON(w, http.StatusBadRequest, SignInResponse{Outcome: OutcomeCancelled})
		return
	}
	if !h.enabled {
		respond.WriteError(w, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return
	}
	withProvider(r)
	user, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		log.Warn().Err(err).Msg("sign-in failed")
		respond.WriteUnauthorized(w, "sign-in failed")
		return
	}

	id := auth.FromGothUser(user)
	token, exp, err := h.tokens.Issue(id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	log.Info().Str("user_id", id.UserID).Msg("user signed in")
	respond.WriteJSON(w, http.StatusOK, SignInResponse{Outcome: OutcomeSuccess, Token: token, ExpiresAt: &exp, User: &id})
}

// Logout handles POST /auth/logout. Bearer tokens stay valid until they
// expire; only the OAuth session is cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	withProvider(r)
	if err := gothic.Logout(w, r); err != nil {
		log.Warn().Err(err).Msg("session clear error")
	}
	respond.WriteJSON(w, http.StatusOK, SignInResponse{Outcome: OutcomeSignedOut})
}
