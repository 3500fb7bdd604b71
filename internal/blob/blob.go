package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("blob: object not found")

// Store persists raw index documents under opaque keys. Implementations must
// make Put atomic: a reader never observes a partially written object.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
