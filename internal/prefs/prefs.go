// Package prefs is a small key/value preference store used for cache
// bookkeeping (last-cache timestamps, checksums).
package prefs

import "context"

// Store describes a string key/value store. Get reports ok=false for a
// missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
