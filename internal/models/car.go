package models

import "time"

type Car struct {
	ID             string    `json:"id"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	Price          float64   `json:"price"`
	DownPayment    float64   `json:"down_payment"`
	MonthlyPayment float64   `json:"monthly_payment"`
	Mileage        int       `json:"mileage"`
	Type           string    `json:"type"`
	Transmission   string    `json:"transmission"`
	Color          string    `json:"color"`
	FuelType       string    `json:"fuel_type"`
	Features       []string  `json:"features"`
	Images         []string  `json:"images"`
	Details        string    `json:"details"`
	IsFeatured     bool      `json:"is_featured"`
	IsReserved     bool      `json:"is_reserved"`
	Likes          int       `json:"likes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateCarRequest struct {
	Make           string   `json:"make" validate:"required"`
	Model          string   `json:"model" validate:"required"`
	Year           int      `json:"year" validate:"required,min=1900,max=2100"`
	Price          float64  `json:"price" validate:"required,gt=0"`
	DownPayment    float64  `json:"down_payment" validate:"min=0"`
	MonthlyPayment float64  `json:"monthly_payment" validate:"min=0"`
	Mileage        int      `json:"mileage" validate:"min=0"`
	Type           string   `json:"type" validate:"required,oneof=sedan suv truck coupe convertible"`
	Transmission   string   `json:"transmission" validate:"required,oneof=automatic manual cvt dual-clutch automated-manual"`
	Color          string   `json:"color" validate:"required"`
	FuelType       string   `json:"fuel_type" validate:"required,oneof=gasoline diesel hybrid electric"`
	Features       []string `json:"features"`
	Details        string   `json:"details" validate:"required"`
	IsFeatured     bool     `json:"is_featured"`
}

type UpdateCarRequest struct {
	Make           *string  `json:"make,omitempty"`
	Model          *string  `json:"model,omitempty"`
	Year           *int     `json:"year,omitempty" validate:"omitempty,min=1900,max=2100"`
	Price          *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	DownPayment    *float64 `json:"down_payment,omitempty" validate:"omitempty,min=0"`
	MonthlyPayment *float64 `json:"monthly_payment,omitempty" validate:"omitempty,min=0"`
	Mileage        *int     `json:"mileage,omitempty" validate:"omitempty,min=0"`
	Type           *string  `json:"type,omitempty" validate:"omitempty,oneof=sedan suv truck coupe convertible"`
	Transmission   *string  `json:"transmission,omitempty" validate:"omitempty,oneof=automatic manual cvt dual-clutch automated-manual"`
	Color          *string  `json:"color,omitempty"`
	FuelType       *string  `json:"fuel_type,omitempty" validate:"omitempty,oneof=gasoline diesel hybrid electric"`
	Features       []string `json:"features,omitempty"`
	Details        *string  `json:"details,omitempty"`
	IsFeatured     *bool    `json:"is_featured,omitempty"`
	IsReserved     *bool    `json:"is_reserved,omitempty"`
}

// CarStats is the per-make aggregation over cars priced at or above 1000.
type CarStats struct {
	Make     string  `json:"make"`
	NumCars  int     `json:"num_cars"`
	AvgPrice float64 `json:"avg_price"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}
