// Package kvstore provides the key/value persistence behind learner progress,
// stats and voice preferences.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a flat string key/value store
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns every entry whose key starts with prefix
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}
