package metadata

import "context"

// Repository is a small key-value store for client bookkeeping: the identity
// marker, the bearer token, per-owner last-pull timestamps and the schema
// version guard.
type Repository interface {
	// Get returns the value for key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set upserts one key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes one key.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every key starting with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error
}
