package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. Unsubscribe endpoints are public
// because they are reached from links in delivered mail.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", OwnerHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.health.HandleHealth)
	r.Get("/health/live", h.health.HandleLiveness)

	r.Route("/api", func(r chi.Router) {
		r.Post("/email/unsubscribe", h.Unsubscribe)
		r.Get("/email/unsubscribe/status", h.UnsubscribeStatus)

		r.Group(func(r chi.Router) {
			r.Use(RequireOwner)

			r.Post("/campaigns/{id}/send", h.SendCampaign)

			r.Post("/email/send", h.SendEmail)
			r.Post("/email/bulk", h.SendBulkEmail)
			r.Post("/email/test", h.SendTestEmail)
			r.Get("/email/history", h.EmailHistory)
		})
	})

	return r
}
