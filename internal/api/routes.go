package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pitchperfect/waitlist/internal/auth"
)

// SetupRoutes configures all routes. The public surface is /health and
// /join; everything under /api/admin sits behind the auth middleware.
func SetupRoutes(h *Handlers, health *HealthChecker, authManager *auth.Manager, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - allow credentials for auth cookies
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health checks (no auth required)
	r.Get("/health", health.HandleHealth)
	r.Get("/health/live", health.HandleLiveness)
	r.Get("/health/ready", health.HandleReadiness)

	// Public waitlist signup
	r.Post("/join", h.Join)

	// Auth routes (no auth required)
	r.Get("/auth/login", authManager.HandleLogin)
	r.Get("/auth/callback", authManager.HandleCallback)
	r.Get("/auth/logout", authManager.HandleLogout)
	r.Get("/auth/user", authManager.HandleUserInfo)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authManager.RequireAuth)

		r.Get("/stats", h.GetStats)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Get("/export", h.ExportUsers)
			r.Put("/{id}", h.UpdateUser)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/", h.CreateCampaign)
			r.Post("/test", h.SendTestEmail)
			r.Get("/{id}", h.GetCampaign)
			r.Delete("/{id}", h.DeleteCampaign)
			r.Post("/{id}/send", h.SendCampaign)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}
