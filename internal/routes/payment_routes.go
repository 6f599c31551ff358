package routes

import (
	"database/sql"

	"github.com/go-chi/chi/v5"

	"autolot/internal/auth"
	"autolot/internal/config"
	"autolot/internal/handlers"
	"autolot/internal/middleware"
	"autolot/internal/repository"
	"autolot/internal/services"
)

func RegisterPaymentRoutes(router chi.Router, db *sql.DB, cfg *config.Config, tokens *auth.Manager) {
	paymentRepo := repository.NewPaymentRepository(db)
	carRepo := repository.NewCarRepository(db)
	stripe := services.NewStripeClient(cfg.StripeSecretKey)
	paymentHandler := handlers.NewPaymentHandler(paymentRepo, carRepo, stripe)

	users := repository.NewUserRepository(db)
	protect := middleware.Authenticator(tokens, users, cfg.CookieName)

	router.Route("/payments", func(r chi.Router) {
		r.Use(protect)
		r.Get("/", paymentHandler.ListMyPayments)
		r.Post("/", paymentHandler.CreatePayment)
		r.Post("/{id}/charge", paymentHandler.ChargePayment)
	})
}
