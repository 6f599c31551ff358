package routes

import (
	"context"
	"database/sql"

	"github.com/go-chi/chi/v5"

	"autolot/internal/auth"
	"autolot/internal/config"
	"autolot/internal/handlers"
	"autolot/internal/middleware"
	"autolot/internal/repository"
	"autolot/internal/services"
)

func RegisterAuthRoutes(router chi.Router, db *sql.DB, cfg *config.Config, tokens *auth.Manager) {
	mailer := &services.SMTPSender{
		Host:   cfg.SMTPHost,
		Port:   cfg.SMTPPort,
		User:   cfg.SMTPUser,
		Pass:   cfg.SMTPPassword,
		From:   cfg.SMTPFrom,
		UseTLS: cfg.SMTPUseTLS,
	}
	authHandler := handlers.NewAuthHandler(db, cfg, tokens, mailer)

	users := repository.NewUserRepository(db)
	protect := middleware.Authenticator(tokens, users, cfg.CookieName)

	// Brute-force guard on the credential-sensitive endpoints.
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	authLimiter.StartCleanup(context.Background())

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.With(authLimiter.Handler).Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)
		r.With(authLimiter.Handler).Post("/forgot-password", authHandler.ForgotPassword)
		r.Patch("/reset-password/{token}", authHandler.ResetPassword)
		r.With(protect).Patch("/update-password", authHandler.UpdatePassword)
	})
}
