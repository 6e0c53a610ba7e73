package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog/log"
)

const ProviderGoogle = "google"

type GoogleConfig struct {
	ClientID      string
	ClientSecret  string
	CallbackURL   string
	SessionSecret string
	Secure        bool
}

// InitProviders configures gothic's session store and registers the
// Google provider. It reports false when no client id is configured.
func InitProviders(cfg GoogleConfig) bool {
	// Gothic keeps OAuth state in its own gorilla/sessions store.
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	if cfg.ClientID == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID not set, Google sign-in is disabled")
		return false
	}

	goth.UseProviders(
		google.New(cfg.ClientID, cfg.ClientSecret, cfg.CallbackURL, "email", "profile"),
	)
	log.Info().Str("provider", ProviderGoogle).Msg("OAuth providers initialized")
	return true
}
