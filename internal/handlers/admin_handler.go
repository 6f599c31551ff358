package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"autolot/internal/interfaces"
	"autolot/internal/models"
	"autolot/internal/repository"
)

type AdminHandler struct {
	users     repository.UserRepository
	cars      interfaces.CarRepository
	payments  repository.PaymentRepository
	startedAt time.Time
	v         *validator.Validate
}

func NewAdminHandler(users repository.UserRepository, cars interfaces.CarRepository, payments repository.PaymentRepository) *AdminHandler {
	return &AdminHandler{
		users:     users,
		cars:      cars,
		payments:  payments,
		startedAt: time.Now().UTC(),
		v:         validator.New(),
	}
}

// @Tags Admin
// @Summary List all users
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.User
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "list_users_failed", "Failed to list users")
		return
	}

	if users == nil {
		users = []models.User{}
	}

	writeJSON(w, http.StatusOK, users)
}

// @Tags Admin
// @Summary Create an admin account
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.CreateAdminRequest true "Admin details"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/admin/admins [post]
func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "create_admin_failed", "Failed to create admin")
		return
	}

	now := time.Now().UTC()
	u := &models.User{
		ID:                uuid.NewString(),
		Email:             req.Email,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		PhoneNumber:       req.PhoneNumber,
		Role:              models.RoleAdmin,
		PasswordHash:      string(hash),
		PasswordChangedAt: now.Add(-time.Second),
		CreatedAt:         now,
	}

	if err := h.users.Create(r.Context(), u); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			writeJSONError(w, http.StatusBadRequest, "email_taken", "An account with that email already exists")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "create_admin_failed", "Failed to create admin")
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// @Tags Admin
// @Summary System status
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/status [get]
func (h *AdminHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userCount, err := h.users.Count(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "status_failed", "Failed to gather status")
		return
	}
	carCount, err := h.cars.Count(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "status_failed", "Failed to gather status")
		return
	}
	paymentCount, err := h.payments.Count(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "status_failed", "Failed to gather status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users":          userCount,
		"cars":           carCount,
		"payments":       paymentCount,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}
