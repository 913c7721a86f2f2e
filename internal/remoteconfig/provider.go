// Package remoteconfig keeps a local copy of remotely managed flags and
// reports which of them changed when a newer set is activated.
package remoteconfig

import (
	"context"
	"fmt"
	"time"
)

// Provider is a flat key/value flag store with a fetch/activate cycle:
// Fetch downloads a candidate set (or reuses one younger than minInterval),
// Activate makes it visible to the typed getters.
type Provider interface {
	Fetch(ctx context.Context, minInterval time.Duration) error
	Activate(ctx context.Context) error
	Int(key string) int64
	String(key string) string
	Bool(key string) bool
}

// ThrottledError is returned by Fetch when the backend refuses requests
// until a later time.
type ThrottledError struct {
	Until time.Time
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("config fetch throttled until %s", e.Until.Format(time.RFC3339))
}
