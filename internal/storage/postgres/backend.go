package postgres

import (
	"context"
	"fmt"

	"github.com/rovshanmuradov/launchlab/internal/storage"
)

// Backend is a PostgreSQL implementation of storage.Backend over the
// bonding_curves table.
type Backend struct {
	pool *Pool
}

// NewBackend creates a backend over pool. The schema must already exist; see
// RunMigrations.
func NewBackend(pool *Pool) *Backend {
	return &Backend{pool: pool}
}

// Open connects to dsn, applies migrations and returns a ready backend.
func Open(ctx context.Context, dsn string) (*Backend, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewBackend(pool), nil
}

// Load returns the payload stored for tokenID. Returns ErrNotFound if not exists.
func (b *Backend) Load(ctx context.Context, tokenID string) ([]byte, error) {
	query := `SELECT payload FROM bonding_curves WHERE token_id = $1`

	var payload string
	err := b.pool.QueryRow(ctx, query, tokenID).Scan(&payload)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query curve %s: %w", tokenID, err)
	}
	return []byte(payload), nil
}

// Save upserts data under tokenID.
func (b *Backend) Save(ctx context.Context, tokenID string, data []byte) error {
	query := `
		INSERT INTO bonding_curves (token_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (token_id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = now()
	`

	if _, err := b.pool.Exec(ctx, query, tokenID, string(data)); err != nil {
		return fmt.Errorf("upsert curve %s: %w", tokenID, err)
	}
	return nil
}

// Delete removes tokenID. Deleting a missing row is not an error.
func (b *Backend) Delete(ctx context.Context, tokenID string) error {
	query := `DELETE FROM bonding_curves WHERE token_id = $1`

	if _, err := b.pool.Exec(ctx, query, tokenID); err != nil {
		return fmt.Errorf("delete curve %s: %w", tokenID, err)
	}
	return nil
}

// Keys lists every stored token id.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	query := `SELECT token_id FROM bonding_curves ORDER BY token_id`

	rows, err := b.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query curve keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan curve key: %w", err)
		}
		keys = append(keys, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curve keys: %w", err)
	}
	return keys, nil
}

// Close closes the underlying pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

var _ storage.Backend = (*Backend)(nil)
