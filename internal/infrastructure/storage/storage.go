package storage

import (
	"context"
	"errors"
)

// Fixed keys for client state persisted across sessions.
const (
	CartKey    = "cart-storage"
	SessionKey = "user-storage"
	TokenKey   = "token"
)

var ErrNotFound = errors.New("storage: key not found")

// KeyValueStore is the durable client-side storage the stores persist into.
// Implementations must make a successful Put visible to the next Get.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
