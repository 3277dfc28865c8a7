package routes

import (
	"github.com/afo-asso/membership-api/internal/auth"
	"github.com/afo-asso/membership-api/internal/handlers"
	"github.com/afo-asso/membership-api/internal/middleware"
	"github.com/afo-asso/membership-api/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adhesionHandler *handlers.AdhesionHandler,
	userHandler *handlers.UserHandler,
	cotisationHandler *handlers.CotisationHandler,
	logHandler *handlers.LogHandler,
	tokenManager *auth.TokenManager,
	users auth.UserResolver,
) {
	// Credential endpoints share one per-IP rate limit
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/forgot-password", authHandler.ForgotPassword)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/reset-password", authHandler.ResetPassword)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/adhesion", adhesionHandler.Submit)

	router.Handle("/metrics", promhttp.Handler())

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(tokenManager, users))

		// Any active member
		r.Get("/auth/me", authHandler.Me)
		r.Put("/auth/password", authHandler.ChangePassword)
		r.Get("/cotisations/me", cotisationHandler.ListMine)

		// Cotisation management - finance or admin
		r.Group(func(r chi.Router) {
			r.Use(auth.Require(models.IsFinanceOrAdmin))

			r.Get("/cotisations", cotisationHandler.ListAll)
			r.Post("/cotisations", cotisationHandler.CreateCotisation)
			r.Post("/cotisations/generate", cotisationHandler.Generate)
			r.Put("/cotisations/{id}", cotisationHandler.UpdateCotisation)
			r.Put("/cotisations/{id}/pay", cotisationHandler.MarkPaid)
			r.Delete("/cotisations/{id}", cotisationHandler.DeleteCotisation)
			r.Get("/users/{id}/cotisations", cotisationHandler.ListByUser)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Require(models.IsAdmin))

			r.Get("/adhesions", adhesionHandler.ListRequests)
			r.Post("/adhesions/{id}/approve", adhesionHandler.Approve)
			r.Post("/adhesions/{id}/reject", adhesionHandler.Reject)
			r.Delete("/adhesions/{id}", adhesionHandler.DeleteRequest)

			r.Get("/users", userHandler.ListUsers)
			r.Post("/users", userHandler.CreateUser)
			r.Get("/users/{id}", userHandler.GetUser)
			r.Put("/users/{id}", userHandler.UpdateUser)
			r.Delete("/users/{id}", userHandler.DeleteUser)

			r.Delete("/cotisations", cotisationHandler.DeleteAll)

			r.Get("/logs", logHandler.ListLogs)
			r.Get("/logs/stats", logHandler.GetStats)
			r.Get("/logs/user/{id}", logHandler.ListUserLogs)
		})
	})
}
