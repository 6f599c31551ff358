package repository

import (
	"context"
	"database/sql"

	"autolot/internal/models"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Payment, error)
	ClaimForProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, stripeChargeID string) error
	MarkFailed(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, user_id, car_id, amount, payment_method, status, stripe_charge_id, first_name, last_name, email, phone_number, created_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var p models.Payment
	var chargeID sql.NullString
	err := row.Scan(&p.ID, &p.UserID, &p.CarID, &p.Amount, &p.PaymentMethod, &p.Status,
		&chargeID, &p.FirstName, &p.LastName, &p.Email, &p.PhoneNumber, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if chargeID.Valid {
		p.StripeChargeID = &chargeID.String
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, car_id, amount, payment_method, status, first_name, last_name, email, phone_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		payment.ID, payment.UserID, payment.CarID, payment.Amount, payment.PaymentMethod,
		payment.Status, payment.FirstName, payment.LastName, payment.Email, payment.PhoneNumber,
		payment.CreatedAt,
	).Scan(&payment.CreatedAt)
	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1
	`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// ClaimForProcessing moves a payment from pending to processing in one
// conditional UPDATE. Only one of any concurrent claims can win; the losers
// get sql.ErrNoRows.
func (r *paymentRepository) ClaimForProcessing(ctx context.Context, id string) error {
	query := `
		UPDATE payments
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, models.PaymentStatusProcessing, id, models.PaymentStatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkCompleted records a successful charge on a claimed payment.
func (r *paymentRepository) MarkCompleted(ctx context.Context, id string, stripeChargeID string) error {
	query := `
		UPDATE payments
		SET status = $1, stripe_charge_id = $2
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, models.PaymentStatusCompleted, stripeChargeID, id, models.PaymentStatusProcessing)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, id string) error {
	query := `UPDATE payments SET status = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, models.PaymentStatusFailed, id)
	return err
}

func (r *paymentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
