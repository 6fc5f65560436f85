package storage

import (
	"context"
	"errors"
)

// Store is the durable key-value storage behind cart persistence and sessions.
// Values are opaque JSON blobs; a missing key is reported as ErrNotFound.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var ErrNotFound = errors.New("key not found")
