// Package metadata is a small key/value escrow for app-level state that
// must live next to the content store: the logged-in flag and the
// encrypted credential blob. The destructive migration clears the
// login-related keys from it.
package metadata

import "context"

type Repository interface {
	// Get returns the stored value, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
