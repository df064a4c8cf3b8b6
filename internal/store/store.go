// Package store provides the key/value persistence used for enquiries and
// admin accounts. Values are opaque JSON blobs.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist. Any other
// error from a KV method is a backend failure.
var ErrNotFound = errors.New("key not found")

// KV is a flat key/value store with prefix scans. Implementations make no
// transactional guarantees.
type KV interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// GetByPrefix returns the values of every key starting with prefix, in
	// backend order.
	GetByPrefix(ctx context.Context, prefix string) ([][]byte, error)
	// Del removes key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error
}
