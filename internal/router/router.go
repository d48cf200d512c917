package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nandakv/regio/internal/auth"
	"github.com/nandakv/regio/internal/handler"
	mw "github.com/nandakv/regio/internal/middleware"
)

func New(
	jwtSecret string,
	regH *handler.RegistrationHandler,
	adminH *handler.AdminHandler,
	authH *handler.AuthHandler,
	healthH *handler.HealthHandler,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS)
	r.Use(mw.Metrics)

	r.Get("/healthz", healthH.Health)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", authH.Login)

		r.Post("/registrations", regH.Create)
		r.Get("/registrations/{id}", regH.Get)
		r.Post("/registrations/{id}/new-entry", regH.NewEntry)
		r.Get("/registrations/{id}/pdf", regH.Pdf)
		r.Get("/registrations/{id}/share", regH.Share)
		r.Get("/registrants/{id}/photo", regH.Photo)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(jwtSecret))

			r.Get("/auth/me", authH.Me)

			r.Get("/admin/registrants", adminH.List)
			r.Get("/admin/registrants/export.csv", adminH.ExportCSV)
			r.Get("/admin/registrants/export.pdf", adminH.ExportPDF)
			r.Get("/admin/stats", adminH.Stats)
		})
	})

	return r
}
