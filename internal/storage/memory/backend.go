package memory

import (
	"context"
	"sync"

	"github.com/rovshanmuradov/launchlab/internal/storage"
)

// Backend is an in-memory implementation of storage.Backend. Payloads are
// copied on the way in and out.
type Backend struct {
	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{entries: make(map[string][]byte)}
}

// Load returns the payload stored for tokenID. Returns ErrNotFound if not exists.
func (b *Backend) Load(_ context.Context, tokenID string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errClosed
	}
	data, exists := b.entries[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save stores data under tokenID, replacing any previous payload.
func (b *Backend) Save(_ context.Context, tokenID string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errClosed
	}
	b.entries[tokenID] = append([]byte(nil), data...)
	return nil
}

// Delete removes tokenID. Deleting a missing key is not an error.
func (b *Backend) Delete(_ context.Context, tokenID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errClosed
	}
	delete(b.entries, tokenID)
	return nil
}

// Keys lists the stored token ids.
func (b *Backend) Keys(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errClosed
	}
	keys := make([]string, 0, len(b.entries))
	for id := range b.entries {
		keys = append(keys, id)
	}
	return keys, nil
}

// Len returns the number of stored entries.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close marks the backend closed; later calls fail.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

var _ storage.Backend = (*Backend)(nil)
