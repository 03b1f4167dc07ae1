package leveldb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	ldb "github.com/syndtr/goleveldb/leveldb"
	ldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/rovshanmuradov/launchlab/internal/storage"
)

// Backend is a LevelDB-backed storage.Backend. Every entry lives under
// storage.KeyPrefix followed by the token id.
type Backend struct {
	db *ldb.DB
}

// Open opens (or creates) a LevelDB database at path.
func Open(path string) (*Backend, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("leveldb curve store path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve leveldb path: %w", err)
	}
	db, err := ldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb curve store: %w", err)
	}
	return &Backend{db: db}, nil
}

// OpenMem opens a LevelDB database held entirely in memory.
func OpenMem() (*Backend, error) {
	db, err := ldb.Open(ldbstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open in-memory leveldb: %w", err)
	}
	return &Backend{db: db}, nil
}

// Load returns the payload stored for tokenID.
func (b *Backend) Load(ctx context.Context, tokenID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := b.db.Get(entryKey(tokenID), nil)
	switch {
	case errors.Is(err, ldb.ErrNotFound):
		return nil, storage.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("load curve %s: %w", tokenID, err)
	}
	return data, nil
}

// Save stores data under tokenID.
func (b *Backend) Save(ctx context.Context, tokenID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.Put(entryKey(tokenID), data, nil); err != nil {
		return fmt.Errorf("save curve %s: %w", tokenID, err)
	}
	return nil
}

// Delete removes tokenID. Deleting a missing key is not an error.
func (b *Backend) Delete(ctx context.Context, tokenID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.Delete(entryKey(tokenID), nil); err != nil {
		return fmt.Errorf("delete curve %s: %w", tokenID, err)
	}
	return nil
}

// Keys lists every token id under storage.KeyPrefix.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	iter := b.db.NewIterator(util.BytesPrefix([]byte(storage.KeyPrefix)), nil)
	defer iter.Release()

	keys := make([]string, 0)
	for iter.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		keys = append(keys, strings.TrimPrefix(string(iter.Key()), storage.KeyPrefix))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate curve keys: %w", err)
	}
	return keys, nil
}

// Close releases the underlying LevelDB resources.
func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func entryKey(tokenID string) []byte {
	return []byte(storage.KeyPrefix + tokenID)
}

var _ storage.Backend = (*Backend)(nil)
