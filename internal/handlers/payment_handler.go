package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"autolot/internal/interfaces"
	"autolot/internal/middleware"
	"autolot/internal/models"
	"autolot/internal/repository"
	"autolot/internal/services"
)

// Purchase pricing: sales tax plus fixed documentation and registration fees.
const (
	salesTaxRate    = 0.07
	documentFee     = 150.0
	registrationFee = 85.0
)

type PaymentHandler struct {
	payments  repository.PaymentRepository
	cars      interfaces.CarRepository
	stripe    services.ChargeCreator
	validator *validator.Validate
}

func NewPaymentHandler(payments repository.PaymentRepository, cars interfaces.CarRepository, stripe services.ChargeCreator) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		cars:      cars,
		stripe:    stripe,
		validator: validator.New(),
	}
}

// purchaseTotal computes the amount owed for a car, rounded to cents.
func purchaseTotal(price float64) float64 {
	total := price + price*salesTaxRate + documentFee + registrationFee
	return math.Round(total*100) / 100
}

// CreatePayment handles POST /api/v1/payments
//
// @Tags Payments
// @Summary Create a payment for a car
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.CreatePaymentRequest true "Payment details"
// @Success 201 {object} models.Payment
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/payments [post]
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFrom(r.Context())
	if u == nil {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "You are not logged in")
		return
	}

	var req models.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	car, err := h.cars.GetByID(r.Context(), req.CarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "car_not_found", "No car found with that ID")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "create_payment_failed", "Failed to create payment")
		return
	}
	if car.IsReserved {
		writeJSONError(w, http.StatusConflict, "car_reserved", "This car is already reserved")
		return
	}

	status := models.PaymentStatusPendingVerification
	if req.PaymentMethod == "creditcard" {
		status = models.PaymentStatusPending
	}

	payment := &models.Payment{
		ID:            uuid.NewString(),
		UserID:        u.ID,
		CarID:         car.ID,
		Amount:        purchaseTotal(car.Price),
		PaymentMethod: req.PaymentMethod,
		Status:        status,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.payments.Create(r.Context(), payment); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "create_payment_failed", "Failed to create payment")
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

// ChargePayment handles POST /api/v1/payments/{id}/charge
//
// @Tags Payments
// @Summary Process a pending credit-card payment through Stripe
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param body body models.ChargePaymentRequest true "Card source token"
// @Success 200 {object} models.Payment
// @Failure 404 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/v1/payments/{id}/charge [post]
func (h *PaymentHandler) ChargePayment(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFrom(r.Context())
	if u == nil {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "You are not logged in")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Payment ID is required")
		return
	}

	var req models.ChargePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	payment, err := h.payments.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "payment_not_found", "No payment found with that ID")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "charge_failed", "Failed to load payment")
		return
	}

	if payment.UserID != u.ID {
		writeJSONError(w, http.StatusNotFound, "payment_not_found", "No payment found with that ID")
		return
	}
	if payment.PaymentMethod != "creditcard" || payment.Status != models.PaymentStatusPending {
		writeJSONError(w, http.StatusConflict, "payment_not_chargeable", "Payment is not pending card processing")
		return
	}

	// Claim the payment before talking to Stripe so a concurrent request for
	// the same payment cannot trigger a second charge.
	if err := h.payments.ClaimForProcessing(r.Context(), payment.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusConflict, "payment_not_chargeable", "Payment is not pending card processing")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "charge_failed", "Failed to load payment")
		return
	}

	car, err := h.cars.GetByID(r.Context(), payment.CarID)
	if err != nil {
		_ = h.payments.MarkFailed(r.Context(), payment.ID)
		writeJSONError(w, http.StatusInternalServerError, "charge_failed", "Failed to load car")
		return
	}

	description := fmt.Sprintf("Purchase of %d %s %s", car.Year, car.Make, car.Model)
	amountCents := int64(math.Round(payment.Amount * 100))

	chargeID, err := h.stripe.CreateCharge(r.Context(), amountCents, "usd", description, req.Source)
	if err != nil {
		_ = h.payments.MarkFailed(r.Context(), payment.ID)
		writeJSONError(w, http.StatusBadGateway, "charge_failed", "Card processing failed")
		return
	}

	if err := h.payments.MarkCompleted(r.Context(), payment.ID, chargeID); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "charge_failed", "Failed to record charge")
		return
	}

	payment.Status = models.PaymentStatusCompleted
	payment.StripeChargeID = &chargeID
	writeJSON(w, http.StatusOK, payment)
}

// ListMyPayments handles GET /api/v1/payments
//
// @Tags Payments
// @Summary List the caller's payments
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Payment
// @Router /api/v1/payments [get]
func (h *PaymentHandler) ListMyPayments(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFrom(r.Context())
	if u == nil {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "You are not logged in")
		return
	}

	payments, err := h.payments.ListByUser(r.Context(), u.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "list_payments_failed", "Failed to list payments")
		return
	}

	if payments == nil {
		payments = []*models.Payment{}
	}

	writeJSON(w, http.StatusOK, payments)
}
