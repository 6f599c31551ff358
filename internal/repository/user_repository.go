package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"autolot/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	UpdatePassword(ctx context.Context, userID string, passwordHash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, userID string) error
	ConsumeResetToken(ctx context.Context, tokenHash string, passwordHash string, now time.Time, changedAt time.Time) (*models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, phone_number, role, password_hash, password_changed_at, reset_token_hash, reset_token_expires_at, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var resetHash sql.NullString
	var resetExpires sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.Role,
		&u.PasswordHash, &u.PasswordChangedAt, &resetHash, &resetExpires, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if resetHash.Valid {
		u.ResetTokenHash = &resetHash.String
	}
	if resetExpires.Valid {
		u.ResetTokenExpires = &resetExpires.Time
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, first_name, last_name, phone_number, role, password_hash, password_changed_at, created_at)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query, user.ID, user.Email, user.FirstName, user.LastName,
		user.PhoneNumber, user.Role, user.PasswordHash, user.PasswordChangedAt, user.CreatedAt).Scan(&user.CreatedAt)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) ListAll(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, phone_number, role, created_at
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string, changedAt time.Time) error {
	query := `UPDATE users SET password_hash = $1, password_changed_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, passwordHash, changedAt, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// SetResetToken stores the hash and expiry of a fresh reset token, replacing
// any pending one for the user.
func (r *userRepository) SetResetToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token_hash = $1, reset_token_expires_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, tokenHash, expiresAt, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func (r *userRepository) ClearResetToken(ctx context.Context, userID string) error {
	query := `UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// ConsumeResetToken applies the new password and clears the reset columns in
// one conditional UPDATE, so two concurrent completions cannot both succeed.
func (r *userRepository) ConsumeResetToken(ctx context.Context, tokenHash string, passwordHash string, now time.Time, changedAt time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET password_hash = $2,
			password_changed_at = $4,
			reset_token_hash = NULL,
			reset_token_expires_at = NULL
		WHERE reset_token_hash = $1
		  AND reset_token_expires_at > $3
		RETURNING ` + userColumns + `
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, tokenHash, passwordHash, now, changedAt))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return u, nil
}
