package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Cheertaboi/coupon-studio/internal/api/handlers"
	"github.com/Cheertaboi/coupon-studio/internal/api/middleware"
	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/generation"
	"github.com/Cheertaboi/coupon-studio/internal/nearby"
	"github.com/Cheertaboi/coupon-studio/internal/presence"
	"github.com/Cheertaboi/coupon-studio/internal/service"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Coupons       *service.CouponService
	Permissions   *service.PermissionService
	Presence      *presence.Service
	Watcher       *nearby.Watcher
	Generations   *generation.Registry
	Tokens        *auth.TokenIssuer
	GoogleEnabled bool
}

// NewRouter builds the HTTP router for the coupon-service
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)

	couponHandler := handlers.NewCouponHandler(d.Coupons)
	presenceHandler := handlers.NewPresenceHandler(d.Presence)
	nearbyHandler := handlers.NewNearbyHandler(d.Watcher, d.Presence)
	generationHandler := handlers.NewGenerationHandler(d.Generations)
	authHandler := handlers.NewAuthHandler(d.Tokens, d.GoogleEnabled)
	systemHandler := handlers.NewSystemHandler(d.Permissions, d.Presence)

	requireAuth := middleware.RequireAuth(d.Tokens)

	// health
	r.Get("/health", systemHandler.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.Begin)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.With(middleware.OptionalAuth(d.Tokens)).Get("/", couponHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", couponHandler.Create)
			r.Get("/{id}", couponHandler.Get)
			r.Put("/{id}", couponHandler.Replace)
			r.Patch("/{id}", couponHandler.Patch)
			r.Delete("/{id}", couponHandler.Delete)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/location", func(r chi.Router) {
			r.Put("/share", presenceHandler.Share)
			r.Post("/stop", presenceHandler.Stop)
			r.Put("/online", presenceHandler.SetOnline)
		})
		r.Get("/profile", presenceHandler.GetProfile)
		r.Put("/profile", presenceHandler.SaveProfile)

		r.Get("/nearby", nearbyHandler.Snapshot)
		r.Get("/nearby/stream", nearbyHandler.Stream)

		r.Route("/generations", func(r chi.Router) {
			r.Post("/image", generationHandler.StartImage)
			r.Post("/model", generationHandler.StartModel)
			r.Get("/{slot}", generationHandler.Status)
			r.Delete("/{slot}", generationHandler.Cancel)
		})

		r.Get("/permissions/check", systemHandler.CheckPermissions)

		// Admin endpoints
		r.Post("/admin/sweep", systemHandler.Sweep)
	})

	return r
}
