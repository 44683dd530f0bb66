package repository

import "context"

// KVStore persists opaque values under string keys. Get returns ErrNotFound
// for a key that was never written or has been deleted.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
