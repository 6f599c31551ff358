package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"autolot/internal/middleware"
	"autolot/internal/models"
)

type mockPaymentRepo struct {
	created       *models.Payment
	payment       *models.Payment
	getErr        error
	claimedID     string
	claimErr      error
	completedID   string
	completedWith string
	failedID      string
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	m.created = payment
	return nil
}
func (m *mockPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	return m.payment, m.getErr
}
func (m *mockPaymentRepo) ListByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	return nil, nil
}
func (m *mockPaymentRepo) ClaimForProcessing(ctx context.Context, id string) error {
	if m.claimErr != nil {
		return m.claimErr
	}
	m.claimedID = id
	return nil
}
func (m *mockPaymentRepo) MarkCompleted(ctx context.Context, id string, stripeChargeID string) error {
	m.completedID = id
	m.completedWith = stripeChargeID
	return nil
}
func (m *mockPaymentRepo) MarkFailed(ctx context.Context, id string) error {
	m.failedID = id
	return nil
}
func (m *mockPaymentRepo) Count(ctx context.Context) (int, error) { return 0, nil }

type mockChargeCreator struct {
	chargeID string
	err      error
	amount   int64
	desc     string
}

func (m *mockChargeCreator) CreateCharge(ctx context.Context, amountCents int64, currency string, description string, source string) (string, error) {
	m.amount = amountCents
	m.desc = description
	return m.chargeID, m.err
}

func authedRequest(method, target string, body []byte, u *models.User) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(middleware.WithUser(req.Context(), u))
}

func buyer() *models.User {
	return &models.User{ID: "u1", Email: "buyer@b.com", Role: models.RoleUser}
}

func paymentPayload(method string) map[string]any {
	return map[string]any{
		"car_id":         "550e8400-e29b-41d4-a716-446655440000",
		"payment_method": method,
		"first_name":     "Ada",
		"last_name":      "Lovelace",
		"email":          "buyer@b.com",
		"phone_number":   "999",
	}
}

func TestCreatePaymentComputesTotal(t *testing.T) {
	cars := &mockCarRepo{getCar: &models.Car{ID: "550e8400-e29b-41d4-a716-446655440000", Price: 20000}}
	payments := &mockPaymentRepo{}
	h := NewPaymentHandler(payments, cars, &mockChargeCreator{})

	b, _ := json.Marshal(paymentPayload("creditcard"))
	w := httptest.NewRecorder()
	h.CreatePayment(w, authedRequest(http.MethodPost, "/payments", b, buyer()))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", w.Code, w.Body.String())
	}

	// 20000 + 7% tax + 150 doc + 85 registration
	want := 20000.0 + 1400.0 + 150.0 + 85.0
	if payments.created == nil {
		t.Fatalf("expected payment to be created")
	}
	if math.Abs(payments.created.Amount-want) > 0.001 {
		t.Fatalf("expected amount %.2f got %.2f", want, payments.created.Amount)
	}
	if payments.created.Status != models.PaymentStatusPending {
		t.Fatalf("expected pending status for creditcard, got %s", payments.created.Status)
	}
	if payments.created.UserID != "u1" {
		t.Fatalf("expected payment linked to caller, got %s", payments.created.UserID)
	}
}

func TestCreatePaymentNonCardNeedsVerification(t *testing.T) {
	cars := &mockCarRepo{getCar: &models.Car{ID: "550e8400-e29b-41d4-a716-446655440000", Price: 15000}}
	payments := &mockPaymentRepo{}
	h := NewPaymentHandler(payments, cars, &mockChargeCreator{})

	b, _ := json.Marshal(paymentPayload("zelle"))
	w := httptest.NewRecorder()
	h.CreatePayment(w, authedRequest(http.MethodPost, "/payments", b, buyer()))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", w.Code, w.Body.String())
	}
	if payments.created.Status != models.PaymentStatusPendingVerification {
		t.Fatalf("expected pending_verification, got %s", payments.created.Status)
	}
}

func TestCreatePaymentReservedCar(t *testing.T) {
	cars := &mockCarRepo{getCar: &models.Car{ID: "550e8400-e29b-41d4-a716-446655440000", Price: 15000, IsReserved: true}}
	h := NewPaymentHandler(&mockPaymentRepo{}, cars, &mockChargeCreator{})

	b, _ := json.Marshal(paymentPayload("creditcard"))
	w := httptest.NewRecorder()
	h.CreatePayment(w, authedRequest(http.MethodPost, "/payments", b, buyer()))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "car_reserved" {
		t.Fatalf("expected car_reserved got %v", resp)
	}
}

func TestChargePaymentSuccess(t *testing.T) {
	car := &models.Car{ID: "c1", Make: "Toyota", Model: "Camry", Year: 2022, Price: 20000}
	payments := &mockPaymentRepo{payment: &models.Payment{
		ID: "p1", UserID: "u1", CarID: "c1", Amount: 21635.00,
		PaymentMethod: "creditcard", Status: models.PaymentStatusPending,
	}}
	stripe := &mockChargeCreator{chargeID: "ch_123"}
	h := NewPaymentHandler(payments, &mockCarRepo{getCar: car}, stripe)

	r := chi.NewRouter()
	r.Post("/payments/{id}/charge", h.ChargePayment)

	b, _ := json.Marshal(map[string]any{"source": "tok_visa"})
	req := authedRequest(http.MethodPost, "/payments/p1/charge", b, buyer())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", w.Code, w.Body.String())
	}
	if stripe.amount != 2163500 {
		t.Fatalf("expected 2163500 cents got %d", stripe.amount)
	}
	if stripe.desc != "Purchase of 2022 Toyota Camry" {
		t.Fatalf("unexpected description %q", stripe.desc)
	}
	if payments.claimedID != "p1" {
		t.Fatalf("expected payment claimed before charging, got %q", payments.claimedID)
	}
	if payments.completedID != "p1" || payments.completedWith != "ch_123" {
		t.Fatalf("expected payment completed with charge id, got %q %q", payments.completedID, payments.completedWith)
	}
	var resp models.Payment
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != models.PaymentStatusCompleted {
		t.Fatalf("expected completed status got %s", resp.Status)
	}
}

func TestChargePaymentStripeFailureMarksFailed(t *testing.T) {
	car := &models.Car{ID: "c1", Make: "Toyota", Model: "Camry", Year: 2022}
	payments := &mockPaymentRepo{payment: &models.Payment{
		ID: "p1", UserID: "u1", CarID: "c1", Amount: 100,
		PaymentMethod: "creditcard", Status: models.PaymentStatusPending,
	}}
	stripe := &mockChargeCreator{err: errors.New("card_declined")}
	h := NewPaymentHandler(payments, &mockCarRepo{getCar: car}, stripe)

	r := chi.NewRouter()
	r.Post("/payments/{id}/charge", h.ChargePayment)

	b, _ := json.Marshal(map[string]any{"source": "tok_declined"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/payments/p1/charge", b, buyer()))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d (%s)", w.Code, w.Body.String())
	}
	if payments.failedID != "p1" {
		t.Fatalf("expected payment marked failed, got %q", payments.failedID)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "charge_failed" {
		t.Fatalf("expected charge_failed got %v", resp)
	}
}

func TestChargePaymentOtherUsersPaymentHidden(t *testing.T) {
	payments := &mockPaymentRepo{payment: &models.Payment{
		ID: "p1", UserID: "someone-else", CarID: "c1",
		PaymentMethod: "creditcard", Status: models.PaymentStatusPending,
	}}
	h := NewPaymentHandler(payments, &mockCarRepo{}, &mockChargeCreator{})

	r := chi.NewRouter()
	r.Post("/payments/{id}/charge", h.ChargePayment)

	b, _ := json.Marshal(map[string]any{"source": "tok_visa"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/payments/p1/charge", b, buyer()))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d (%s)", w.Code, w.Body.String())
	}
}

func TestChargePaymentLostClaimDoesNotCharge(t *testing.T) {
	car := &models.Car{ID: "c1", Make: "Toyota", Model: "Camry", Year: 2022}
	payments := &mockPaymentRepo{
		payment: &models.Payment{
			ID: "p1", UserID: "u1", CarID: "c1", Amount: 100,
			PaymentMethod: "creditcard", Status: models.PaymentStatusPending,
		},
		claimErr: sql.ErrNoRows,
	}
	stripe := &mockChargeCreator{chargeID: "ch_123"}
	h := NewPaymentHandler(payments, &mockCarRepo{getCar: car}, stripe)

	r := chi.NewRouter()
	r.Post("/payments/{id}/charge", h.ChargePayment)

	b, _ := json.Marshal(map[string]any{"source": "tok_visa"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/payments/p1/charge", b, buyer()))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d (%s)", w.Code, w.Body.String())
	}
	if stripe.amount != 0 {
		t.Fatalf("stripe must not be called when the claim is lost, charged %d cents", stripe.amount)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "payment_not_chargeable" {
		t.Fatalf("expected payment_not_chargeable got %v", resp)
	}
}

func TestChargePaymentNotChargeable(t *testing.T) {
	payments := &mockPaymentRepo{payment: &models.Payment{
		ID: "p1", UserID: "u1", CarID: "c1",
		PaymentMethod: "zelle", Status: models.PaymentStatusPendingVerification,
	}}
	h := NewPaymentHandler(payments, &mockCarRepo{}, &mockChargeCreator{})

	r := chi.NewRouter()
	r.Post("/payments/{id}/charge", h.ChargePayment)

	b, _ := json.Marshal(map[string]any{"source": "tok_visa"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/payments/p1/charge", b, buyer()))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "payment_not_chargeable" {
		t.Fatalf("expected payment_not_chargeable got %v", resp)
	}
}

func TestListMyPaymentsEmptyIsJSONArray(t *testing.T) {
	h := NewPaymentHandler(&mockPaymentRepo{}, &mockCarRepo{}, &mockChargeCreator{})

	req := authedRequest(http.MethodGet, "/payments", nil, buyer())
	w := httptest.NewRecorder()
	h.ListMyPayments(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", w.Code, w.Body.String())
	}
	if body := bytes.TrimSpace(w.Body.Bytes()); string(body) != "[]" {
		t.Fatalf("expected empty array got %s", body)
	}
}
