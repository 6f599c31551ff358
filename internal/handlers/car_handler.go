// internal/handlers/car_handler.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"autolot/internal/interfaces"
	"autolot/internal/models"
)

type CarHandler struct {
	repo      interfaces.CarRepository
	validator *validator.Validate
}

func NewCarHandler(repo interfaces.CarRepository) *CarHandler {
	return &CarHandler{
		repo:      repo,
		validator: validator.New(),
	}
}

// CreateCar handles POST /api/v1/cars
//
// @Tags Cars
// @Summary Add a car to the inventory
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.CreateCarRequest true "Car details"
// @Success 201 {object} models.Car
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/cars [post]
func (h *CarHandler) CreateCar(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	car := &models.Car{
		ID:             uuid.NewString(),
		Make:           req.Make,
		Model:          req.Model,
		Year:           req.Year,
		Price:          req.Price,
		DownPayment:    req.DownPayment,
		MonthlyPayment: req.MonthlyPayment,
		Mileage:        req.Mileage,
		Type:           req.Type,
		Transmission:   req.Transmission,
		Color:          req.Color,
		FuelType:       req.FuelType,
		Features:       req.Features,
		Images:         []string{},
		Details:        req.Details,
		IsFeatured:     req.IsFeatured,
	}

	if err := h.repo.Create(r.Context(), car); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "create_car_failed", "Failed to create car")
		return
	}

	writeJSON(w, http.StatusCreated, car)
}

// GetCar handles GET /api/v1/cars/{id}
//
// @Tags Cars
// @Summary Get a car
// @Produce json
// @Param id path string true "Car ID"
// @Success 200 {object} models.Car
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/cars/{id} [get]
func (h *CarHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Car ID is required")
		return
	}

	car, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "car_not_found", "No car found with that ID")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "get_car_failed", "Failed to fetch car")
		return
	}

	writeJSON(w, http.StatusOK, car)
}

// ListCars handles GET /api/v1/cars
//
// @Tags Cars
// @Summary List cars
// @Produce json
// @Param make query string false "Filter by make"
// @Param type query string false "Filter by body type"
// @Param fuel_type query string false "Filter by fuel type"
// @Param min_price query number false "Minimum price"
// @Param max_price query number false "Maximum price"
// @Param featured query bool false "Only featured cars"
// @Param sort query string false "Sort key: price, -price, year, -year"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Car
// @Router /api/v1/cars [get]
func (h *CarHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := interfaces.CarFilter{
		Make:     q.Get("make"),
		Type:     q.Get("type"),
		FuelType: q.Get("fuel_type"),
		Sort:     q.Get("sort"),
		Limit:    100,
	}

	if v := q.Get("min_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = f
		}
	}
	if v := q.Get("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = f
		}
	}
	if v := q.Get("featured"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.Featured = &b
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	cars, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "list_cars_failed", "Failed to list cars")
		return
	}

	if cars == nil {
		cars = []*models.Car{}
	}

	writeJSON(w, http.StatusOK, cars)
}

// UpdateCar handles PUT /api/v1/cars/{id}
//
// @Tags Cars
// @Summary Update a car
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Car ID"
// @Param body body models.UpdateCarRequest true "Fields to update"
// @Success 200 {object} models.Car
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/cars/{id} [put]
func (h *CarHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Car ID is required")
		return
	}

	var req models.UpdateCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	car, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "car_not_found", "No car found with that ID")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "update_car_failed", "Failed to update car")
		return
	}

	writeJSON(w, http.StatusOK, car)
}

// DeleteCar handles DELETE /api/v1/cars/{id}
//
// @Tags Cars
// @Summary Delete a car
// @Security BearerAuth
// @Produce json
// @Param id path string true "Car ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/cars/{id} [delete]
func (h *CarHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Car ID is required")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		var blocked *interfaces.DeletionBlockedError
		if errors.As(err, &blocked) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":      "deletion_blocked",
				"message":    "Car has payment records and cannot be deleted",
				"references": blocked.References,
			})
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "car_not_found", "No car found with that ID")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "delete_car_failed", "Failed to delete car")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetCarStats handles GET /api/v1/cars/stats
//
// @Tags Cars
// @Summary Inventory statistics grouped by make
// @Produce json
// @Success 200 {array} models.CarStats
// @Router /api/v1/cars/stats [get]
func (h *CarHandler) GetCarStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "car_stats_failed", "Failed to compute stats")
		return
	}

	if stats == nil {
		stats = []models.CarStats{}
	}

	writeJSON(w, http.StatusOK, stats)
}
