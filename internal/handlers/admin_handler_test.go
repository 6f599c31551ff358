package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lib/pq"

	"autolot/internal/models"
	"autolot/internal/repository"
)

type stubUserRepo struct {
	users     []models.User
	createErr error
	created   *models.User
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	s.created = user
	return s.createErr
}
func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, nil
}
func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}
func (s *stubUserRepo) ListAll(ctx context.Context) ([]models.User, error) { return s.users, nil }
func (s *stubUserRepo) Count(ctx context.Context) (int, error)             { return len(s.users), nil }
func (s *stubUserRepo) UpdatePassword(ctx context.Context, userID string, passwordHash string, changedAt time.Time) error {
	return nil
}
func (s *stubUserRepo) SetResetToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	return nil
}
func (s *stubUserRepo) ClearResetToken(ctx context.Context, userID string) error { return nil }
func (s *stubUserRepo) ConsumeResetToken(ctx context.Context, tokenHash string, passwordHash string, now time.Time, changedAt time.Time) (*models.User, error) {
	return nil, nil
}

func TestCreateAdminAssignsAdminRole(t *testing.T) {
	users := &stubUserRepo{}
	h := NewAdminHandler(users, &mockCarRepo{}, &mockPaymentRepo{})

	b, _ := json.Marshal(map[string]any{
		"email":        "boss@b.com",
		"password":     "password123",
		"first_name":   "Grace",
		"last_name":    "Hopper",
		"phone_number": "555",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/admins", bytes.NewReader(b))
	w := httptest.NewRecorder()
	h.CreateAdmin(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", w.Code, w.Body.String())
	}
	if users.created == nil || users.created.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %+v", users.created)
	}
	if users.created.PasswordHash == "password123" {
		t.Fatalf("password stored unhashed")
	}
}

func TestCreateAdminDuplicateEmail(t *testing.T) {
	users := &stubUserRepo{createErr: &pq.Error{Code: "23505"}}
	h := NewAdminHandler(users, &mockCarRepo{}, &mockPaymentRepo{})

	b, _ := json.Marshal(map[string]any{
		"email":        "boss@b.com",
		"password":     "password123",
		"first_name":   "Grace",
		"last_name":    "Hopper",
		"phone_number": "555",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/admins", bytes.NewReader(b))
	w := httptest.NewRecorder()
	h.CreateAdmin(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "email_taken" {
		t.Fatalf("expected email_taken got %v", resp)
	}
}

func TestGetStatusCounts(t *testing.T) {
	users := &stubUserRepo{users: []models.User{{ID: "u1"}, {ID: "u2"}}}
	cars := &mockCarRepo{listCars: []*models.Car{{ID: "c1"}}}
	h := NewAdminHandler(users, cars, &mockPaymentRepo{})

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	w := httptest.NewRecorder()
	h.GetStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["users"] != float64(2) || resp["cars"] != float64(1) {
		t.Fatalf("unexpected counts %v", resp)
	}
}
