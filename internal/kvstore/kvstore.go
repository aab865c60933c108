// Package kvstore is the small durable key-value abstraction behind
// client-local state (the persisted cart, the dev-bypass flag). The medium is
// swappable: in-memory for tests, file-backed for single-node deployments,
// Redis when configured.
package kvstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kvstore: key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
