package metadata

import (
	"context"
)

// Repository is a string key/value table stored next to the route.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
