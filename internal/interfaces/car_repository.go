// internal/interfaces/car_repository.go
package interfaces

import (
	"context"

	"autolot/internal/models"
)

// CarFilter defines the filter criteria for listing cars
type CarFilter struct {
	Make     string
	Type     string
	FuelType string
	MinPrice float64
	MaxPrice float64
	Featured *bool
	Sort     string
	Limit    int
	Offset   int
}

// CarRepository defines the interface for inventory data operations
type CarRepository interface {
	Create(ctx context.Context, car *models.Car) error
	GetByID(ctx context.Context, id string) (*models.Car, error)
	List(ctx context.Context, filter CarFilter) ([]*models.Car, error)
	Update(ctx context.Context, id string, req *models.UpdateCarRequest) (*models.Car, error)
	AppendImages(ctx context.Context, id string, urls []string) (*models.Car, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) ([]models.CarStats, error)
}
