package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/storage"
)

func TestBackend_SaveLoadUpsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	b := NewBackend(pool)
	ctx := context.Background()

	_, err := b.Load(ctx, "mint1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, b.Save(ctx, "mint1", []byte(`{"v":1}`)))
	require.NoError(t, b.Save(ctx, "mint1", []byte(`{"v":2}`)))

	got, err := b.Load(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	require.NoError(t, b.Save(ctx, "mint2", []byte(`{}`)))
	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mint1", "mint2"}, keys)

	require.NoError(t, b.Delete(ctx, "mint1"))
	_, err = b.Load(ctx, "mint1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBackend_MigrationsAreIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, RunMigrations(context.Background(), pool))
}

func TestBackend_CurveStoreRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := storage.NewCurveStore(NewBackend(pool), zap.NewNop())

	rec, err := store.Create(ctx, "mint-pg", curve.DefaultTotalSupply, curve.Metadata{Name: "Postgres", Symbol: "PG"})
	require.NoError(t, err)

	rec, err = curve.ApplyTrade(rec, decimal.NewFromInt(1_000_000_000_000), decimal.NewFromInt(1_000_000_000), curve.Buy)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, rec.TokenID, rec))

	// fresh store, empty cache
	got, err := storage.NewCurveStore(NewBackend(pool), zap.NewNop()).Get(ctx, "mint-pg")
	require.NoError(t, err)
	assert.True(t, got.Equal(rec))

	_, err = store.Create(ctx, "mint-pg", curve.DefaultTotalSupply, curve.Metadata{})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}
