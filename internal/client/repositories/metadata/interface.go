// Package metadata is the client's key-value store: session data, the
// signed-in identity and the pending deferred link all live here.
package metadata

import (
	"context"
)

// Repository stores opaque values by key. Missing keys read as nil
// without an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// GetMany returns the values of the keys that exist.
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	// Take returns the value and removes the key in one statement.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
