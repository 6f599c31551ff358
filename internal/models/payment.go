package models

import "time"

const (
	PaymentStatusPending             = "pending"
	PaymentStatusPendingVerification = "pending_verification"
	PaymentStatusProcessing          = "processing"
	PaymentStatusCompleted           = "completed"
	PaymentStatusFailed              = "failed"
)

type Payment struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CarID          string    `json:"car_id"`
	Amount         float64   `json:"amount"`
	PaymentMethod  string    `json:"payment_method"`
	Status         string    `json:"status"`
	StripeChargeID *string   `json:"stripe_charge_id,omitempty"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	CreatedAt      time.Time `json:"created_at"`
}

type CreatePaymentRequest struct {
	CarID         string `json:"car_id" validate:"required,uuid4"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=creditcard cashapp zelle financing"`
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	PhoneNumber   string `json:"phone_number" validate:"required"`
}

type ChargePaymentRequest struct {
	Source string `json:"source" validate:"required"`
}
