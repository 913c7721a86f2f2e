package destinations

import (
	"context"

	"github.com/dmitrijs2005/santatracker/internal/models"
)

// Repository describes the operations on the destinations table.
type Repository interface {
	Count(ctx context.Context) (int, error)

	// InsertAll writes every destination, replacing rows with the same id.
	InsertAll(ctx context.Context, list []models.Destination) error

	// All returns every destination ordered by departure.
	All(ctx context.Context) ([]models.Destination, error)

	// GetByID returns (nil, nil) when no row matches.
	GetByID(ctx context.Context, id string) (*models.Destination, error)

	// First and Last return the destinations with the smallest and largest
	// arrival, or (nil, nil) on an empty table.
	First(ctx context.Context) (*models.Destination, error)
	Last(ctx context.Context) (*models.Destination, error)

	DeleteAll(ctx context.Context) error
}
