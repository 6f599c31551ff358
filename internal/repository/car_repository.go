package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"autolot/internal/interfaces"
	"autolot/internal/models"
)

type carRepository struct {
	db *sql.DB
}

func NewCarRepository(db *sql.DB) interfaces.CarRepository {
	return &carRepository{db: db}
}

const carColumns = `id, make, model, year, price, down_payment, monthly_payment, mileage, type, transmission, color, fuel_type, features, images, details, is_featured, is_reserved, likes, created_at, updated_at`

func (r *carRepository) scanCar(row interface{ Scan(...any) error }) (*models.Car, error) {
	var c models.Car
	err := row.Scan(
		&c.ID, &c.Make, &c.Model, &c.Year, &c.Price, &c.DownPayment, &c.MonthlyPayment,
		&c.Mileage, &c.Type, &c.Transmission, &c.Color, &c.FuelType,
		pq.Array(&c.Features), pq.Array(&c.Images), &c.Details,
		&c.IsFeatured, &c.IsReserved, &c.Likes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.Features == nil {
		c.Features = []string{}
	}
	if c.Images == nil {
		c.Images = []string{}
	}
	return &c, nil
}

func (r *carRepository) Create(ctx context.Context, car *models.Car) error {
	features := car.Features
	if features == nil {
		features = []string{}
	}
	images := car.Images
	if images == nil {
		images = []string{}
	}

	query := `
		INSERT INTO cars (
			id, make, model, year, price, down_payment, monthly_payment,
			mileage, type, transmission, color, fuel_type, features, images,
			details, is_featured, is_reserved, likes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		car.ID,
		car.Make,
		car.Model,
		car.Year,
		car.Price,
		car.DownPayment,
		car.MonthlyPayment,
		car.Mileage,
		car.Type,
		car.Transmission,
		car.Color,
		car.FuelType,
		pq.Array(features),
		pq.Array(images),
		car.Details,
		car.IsFeatured,
		car.IsReserved,
		car.Likes,
	).Scan(&car.CreatedAt, &car.UpdatedAt)
	return err
}

func (r *carRepository) GetByID(ctx context.Context, id string) (*models.Car, error) {
	query := `
		SELECT ` + carColumns + `
		FROM cars
		WHERE id = $1
	`

	car, err := r.scanCar(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return car, nil
}

func (r *carRepository) List(ctx context.Context, filter interfaces.CarFilter) ([]*models.Car, error) {
	query := `
		SELECT ` + carColumns + `
		FROM cars
		WHERE 1=1
	`

	var args []interface{}
	var whereClauses []string
	argPos := 1

	if filter.Make != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("LOWER(make) = LOWER($%d)", argPos))
		args = append(args, filter.Make)
		argPos++
	}
	if filter.Type != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("type = $%d", argPos))
		args = append(args, filter.Type)
		argPos++
	}
	if filter.FuelType != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("fuel_type = $%d", argPos))
		args = append(args, filter.FuelType)
		argPos++
	}
	if filter.MinPrice > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("price >= $%d", argPos))
		args = append(args, filter.MinPrice)
		argPos++
	}
	if filter.MaxPrice > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("price <= $%d", argPos))
		args = append(args, filter.MaxPrice)
		argPos++
	}
	if filter.Featured != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("is_featured = $%d", argPos))
		args = append(args, *filter.Featured)
		argPos++
	}

	if len(whereClauses) > 0 {
		query += " AND " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY " + orderClause(filter.Sort)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []*models.Car
	for rows.Next() {
		car, err := r.scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, car)
	}

	return cars, rows.Err()
}

// orderClause maps a client sort key to a safe ORDER BY expression.
func orderClause(sort string) string {
	switch sort {
	case "price":
		return "price ASC"
	case "-price":
		return "price DESC"
	case "year":
		return "year ASC"
	case "-year":
		return "year DESC"
	default:
		return "created_at DESC"
	}
}

func (r *carRepository) Update(ctx context.Context, id string, req *models.UpdateCarRequest) (*models.Car, error) {
	query := `
		UPDATE cars
		SET make = COALESCE($1, make),
			model = COALESCE($2, model),
			year = COALESCE($3, year),
			price = COALESCE($4, price),
			down_payment = COALESCE($5, down_payment),
			monthly_payment = COALESCE($6, monthly_payment),
			mileage = COALESCE($7, mileage),
			type = COALESCE($8, type),
			transmission = COALESCE($9, transmission),
			color = COALESCE($10, color),
			fuel_type = COALESCE($11, fuel_type),
			features = COALESCE($12, features),
			details = COALESCE($13, details),
			is_featured = COALESCE($14, is_featured),
			is_reserved = COALESCE($15, is_reserved),
			updated_at = NOW()
		WHERE id = $16
		RETURNING ` + carColumns + `
	`

	var features interface{}
	if req.Features != nil {
		features = pq.Array(req.Features)
	}

	car, err := r.scanCar(r.db.QueryRowContext(ctx, query,
		req.Make, req.Model, req.Year, req.Price, req.DownPayment, req.MonthlyPayment,
		req.Mileage, req.Type, req.Transmission, req.Color, req.FuelType,
		features, req.Details, req.IsFeatured, req.IsReserved, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return car, nil
}

func (r *carRepository) AppendImages(ctx context.Context, id string, urls []string) (*models.Car, error) {
	query := `
		UPDATE cars
		SET images = images || $1,
			updated_at = NOW()
		WHERE id = $2
		RETURNING ` + carColumns + `
	`

	car, err := r.scanCar(r.db.QueryRowContext(ctx, query, pq.Array(urls), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return car, nil
}

func (r *carRepository) Delete(ctx context.Context, id string) error {
	var paymentCount int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE car_id = $1`, id).Scan(&paymentCount)
	if err != nil {
		return err
	}
	if paymentCount > 0 {
		return &interfaces.DeletionBlockedError{
			Resource:   "car",
			References: map[string]int64{"payments": paymentCount},
		}
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = $1`, id)
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

func (r *carRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *carRepository) Stats(ctx context.Context) ([]models.CarStats, error) {
	query := `
		SELECT make, COUNT(*) AS num_cars, AVG(price) AS avg_price, MIN(price) AS min_price, MAX(price) AS max_price
		FROM cars
		WHERE price >= 1000
		GROUP BY make
		ORDER BY avg_price DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.CarStats
	for rows.Next() {
		var s models.CarStats
		if err := rows.Scan(&s.Make, &s.NumCars, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
