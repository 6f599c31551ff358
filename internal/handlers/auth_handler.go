package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"autolot/internal/auth"
	"autolot/internal/config"
	"autolot/internal/middleware"
	"autolot/internal/models"
	"autolot/internal/repository"
	"autolot/internal/services"
)

type AuthHandler struct {
	users  repository.UserRepository
	tokens *auth.Manager
	mailer services.EmailSender
	cfg    *config.Config
	v      *validator.Validate
}

func NewAuthHandler(db *sql.DB, cfg *config.Config, tokens *auth.Manager, mailer services.EmailSender) *AuthHandler {
	return &AuthHandler{
		users:  repository.NewUserRepository(db),
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		v:      validator.New(),
	}
}

// sendToken issues a session token for the user and delivers it both as an
// httpOnly cookie and in the JSON body.
func (h *AuthHandler) sendToken(w http.ResponseWriter, status int, u *models.User) {
	token, expiresAt, err := h.tokens.Issue(u.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "token_issue_failed", "Failed to issue token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cfg.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, status, models.AuthResponse{
		AccessToken: token,
		ExpiresIn:   int64(h.tokens.ExpiresIn().Seconds()),
		User:        u,
	})
}

// @Tags Auth
// @Summary Register a new account
// @Accept json
// @Produce json
// @Param body body models.RegisterRequest true "Registration details"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if req.Password != req.PasswordConfirm {
		writeJSONError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "register_failed", "Failed to create user")
		return
	}

	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Role:         models.RoleUser,
		PasswordHash: string(hash),
		// Backdated one second so the registration token itself survives
		// the password-changed-at check.
		PasswordChangedAt: now.Add(-time.Second),
		CreatedAt:         now,
	}

	if err := h.users.Create(r.Context(), u); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			writeJSONError(w, http.StatusBadRequest, "email_taken", "An account with that email already exists")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "register_failed", "Failed to create user")
		return
	}

	h.sendToken(w, http.StatusCreated, u)
}

// @Tags Auth
// @Summary Log in
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if h.cfg.AuthVerboseErrors {
			writeJSONError(w, http.StatusUnauthorized, "unknown_email", "No account with that email")
			return
		}
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Incorrect email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		if h.cfg.AuthVerboseErrors {
			writeJSONError(w, http.StatusUnauthorized, "invalid_password", "Password is incorrect")
			return
		}
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Incorrect email or password")
		return
	}

	h.sendToken(w, http.StatusOK, u)
}

// Logout overwrites the session cookie with a short-lived dummy value. The
// server cannot revoke an already-issued token; this is a client-side signal.
//
// @Tags Auth
// @Summary Log out
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/logout [get]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   h.cfg.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	})
	writeJSONMessage(w, http.StatusOK, "Logged out")
}

// @Tags Auth
// @Summary Request a password reset
// @Accept json
// @Produce json
// @Param body body models.ForgotPasswordRequest true "Account email"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	// Always return 200 to avoid user enumeration
	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	rawToken, tokenHash, err := generateResetToken()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "reset_request_failed", "Failed to generate reset token")
		return
	}

	expiresAt := time.Now().UTC().Add(h.cfg.ResetTokenTTL)
	if err := h.users.SetResetToken(r.Context(), u.ID, tokenHash, expiresAt); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "reset_request_failed", "Failed to store reset token")
		return
	}

	resetURL := fmt.Sprintf("%s/api/v1/auth/reset-password/%s", requestBaseURL(r), rawToken)
	subject := "Your password reset token"
	body := fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password and password_confirm to:\n\n%s\n\nThis token expires in %d minutes. If you didn't forget your password, please ignore this email.",
		resetURL, int(h.cfg.ResetTokenTTL.Minutes()),
	)

	if err := h.mailer.Send(u.Email, subject, body); err != nil {
		// A reset token the user never received must not stay pending.
		_ = h.users.ClearResetToken(r.Context(), u.ID)
		writeJSONError(w, http.StatusInternalServerError, "email_send_failed", "There was an error sending the email, try again later")
		return
	}

	resp := map[string]any{"ok": true}
	if h.cfg.AuthReturnResetToken {
		resp["token"] = rawToken
		resp["expires_in_seconds"] = int64(h.cfg.ResetTokenTTL.Seconds())
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Tags Auth
// @Summary Reset password with an emailed token
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param body body models.ResetPasswordRequest true "New password"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/auth/reset-password/{token} [patch]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rawToken := chi.URLParam(r, "token")
	if rawToken == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Reset token is required")
		return
	}

	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if req.Password != req.PasswordConfirm {
		writeJSONError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match")
		return
	}

	hash := sha256.Sum256([]byte(rawToken))
	tokenHash := hex.EncodeToString(hash[:])

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "reset_failed", "Failed to reset password")
		return
	}

	now := time.Now().UTC()
	u, err := h.users.ConsumeResetToken(r.Context(), tokenHash, string(pwHash), now, now.Add(-time.Second))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusBadRequest, "invalid_or_expired_token", "Token is invalid or has expired")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "reset_failed", "Failed to reset password")
		return
	}

	h.sendToken(w, http.StatusOK, u)
}

// @Tags Auth
// @Summary Change password while logged in
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.UpdatePasswordRequest true "Current and new password"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/update-password [patch]
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFrom(r.Context())
	if u == nil {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "You are not logged in")
		return
	}

	var req models.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if req.Password != req.PasswordConfirm {
		writeJSONError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Your current password is wrong")
		return
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "update_failed", "Failed to update password")
		return
	}

	changedAt := time.Now().UTC().Add(-time.Second)
	if err := h.users.UpdatePassword(r.Context(), u.ID, string(pwHash), changedAt); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "update_failed", "Failed to update password")
		return
	}

	h.sendToken(w, http.StatusOK, u)
}

func generateResetToken() (rawToken string, tokenHash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	rawToken = hex.EncodeToString(b)
	h := sha256.Sum256([]byte(rawToken))
	tokenHash = hex.EncodeToString(h[:])
	return rawToken, tokenHash, nil
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
