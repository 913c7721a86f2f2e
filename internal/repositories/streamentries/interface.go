// Package streamentries persists the timestamped feed items. Rows are keyed
// by timestamp (unix milliseconds); a second entry with the same timestamp
// replaces the first.
package streamentries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/models"
)

type Repository interface {
	Count(ctx context.Context) (int, error)
	InsertAll(ctx context.Context, list []models.StreamEntry) error
	// All returns every entry ordered by timestamp.
	All(ctx context.Context) ([]models.StreamEntry, error)
	// Get returns (nil, nil) when no entry has the timestamp.
	Get(ctx context.Context, ts time.Time) (*models.StreamEntry, error)
	DeleteAll(ctx context.Context) error
}
