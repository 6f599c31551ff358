package routes

import (
	"database/sql"

	"github.com/go-chi/chi/v5"

	"autolot/internal/auth"
	"autolot/internal/config"
	"autolot/internal/handlers"
	"autolot/internal/middleware"
	"autolot/internal/models"
	"autolot/internal/repository"
)

func RegisterAdminRoutes(router chi.Router, db *sql.DB, cfg *config.Config, tokens *auth.Manager) {
	users := repository.NewUserRepository(db)
	cars := repository.NewCarRepository(db)
	payments := repository.NewPaymentRepository(db)
	adminHandler := handlers.NewAdminHandler(users, cars, payments)

	protect := middleware.Authenticator(tokens, users, cfg.CookieName)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	router.Route("/admin", func(r chi.Router) {
		r.Use(protect)
		r.Use(adminOnly)
		r.Get("/users", adminHandler.ListUsers)
		r.Post("/admins", adminHandler.CreateAdmin)
		r.Get("/status", adminHandler.GetStatus)
	})
}
