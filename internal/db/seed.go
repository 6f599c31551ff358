package db

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"autolot/internal/config"
	"autolot/internal/models"
	"autolot/internal/repository"
)

// SeedAdmin creates the bootstrap admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD. It does nothing if either is unset or the account
// already exists.
func SeedAdmin(ctx context.Context, database *sql.DB, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	users := repository.NewUserRepository(database)

	if _, err := users.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	admin := &models.User{
		ID:                uuid.New().String(),
		Email:             cfg.AdminEmail,
		FirstName:         "Admin",
		LastName:          "User",
		Role:              models.RoleAdmin,
		PasswordHash:      string(hash),
		PasswordChangedAt: now.Add(-time.Second),
		CreatedAt:         now,
	}

	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	log.Printf("Seeded admin account: %s", cfg.AdminEmail)
	return nil
}
