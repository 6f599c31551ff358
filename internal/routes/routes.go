// internal/routes/routes.go
package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"autolot/internal/auth"
	"autolot/internal/config"
	"autolot/internal/middleware"
)

func SetupRoutes(db *sql.DB, cfg *config.Config, s3Config *config.S3Config) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// General API throttle; auth endpoints get a stricter one of their own.
	apiLimiter := middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateWindow)
	apiLimiter.StartCleanup(context.Background())
	r.Use(apiLimiter.Handler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "autolot API"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "ok", "db": map[string]any{"status": "ok"}}
		status := http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["db"] = map[string]any{"status": "error", "error": err.Error()}
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	})

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTExpiresInSeconds)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		RegisterAuthRoutes(r, db, cfg, tokens)
		RegisterCarRoutes(r, db, cfg, tokens, s3Config)
		RegisterPaymentRoutes(r, db, cfg, tokens)
		RegisterAdminRoutes(r, db, cfg, tokens)
	})

	RegisterSwaggerRoutes(r)

	return r
}
