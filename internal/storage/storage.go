// internal/storage/storage.go
package storage

import (
	"context"
)

// KeyPrefix namespaces curve entries in shared key-value stores.
const KeyPrefix = "bonding_curve_"

// Backend is the durable keyed store behind CurveStore. Implementations hold
// opaque encoded payloads keyed by token id and never interpret them.
//
// Load returns ErrNotFound for a missing key. Any other error is treated as
// an I/O failure.
type Backend interface {
	Load(ctx context.Context, tokenID string) ([]byte, error)
	Save(ctx context.Context, tokenID string, data []byte) error
	Delete(ctx context.Context, tokenID string) error
	// Keys lists the token ids of every stored entry, in no particular order.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
