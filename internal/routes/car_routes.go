// internal/routes/car_routes.go
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

func RegisterCarRoutes(router chi.Router, db *sql.DB, cfg *config.Config, tokens *auth.Manager, s3Config *config.S3Config) {
	carRepo := repository.NewCarRepository(db)
	carHandler := handlers.NewCarHandler(carRepo)
	imageHandler := handlers.NewCarImageHandler(carRepo, s3Config)

	users := repository.NewUserRepository(db)
	protect := middleware.Authenticator(tokens, users, cfg.CookieName)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	router.Route("/cars", func(r chi.Router) {
		r.Get("/", carHandler.ListCars)
		r.Get("/stats", carHandler.GetCarStats)
		r.With(protect, adminOnly).Post("/", carHandler.CreateCar)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", carHandler.GetCar)
			r.With(protect, adminOnly).Put("/", carHandler.UpdateCar)
			r.With(protect, adminOnly).Delete("/", carHandler.DeleteCar)
			r.With(protect, adminOnly).Post("/images", imageHandler.UploadImages)
		})
	})
}
