package leveldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/storage"
)

func TestBackend_ReopenKeepsCurves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curves")
	ctx := context.Background()

	backend, err := Open(path)
	require.NoError(t, err)

	store := storage.NewCurveStore(backend, zap.NewNop())
	supply := decimal.RequireFromString("1000000000000000000000")
	rec, err := store.Create(ctx, "mint-restart", supply, curve.Metadata{Name: "Restart", Symbol: "RST"})
	require.NoError(t, err)

	// beyond 2^53 so a float64 round trip would lose digits
	rec, err = curve.ApplyTrade(rec, decimal.RequireFromString("9007199254740993"), decimal.RequireFromString("18014398509481985"), curve.Buy)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, rec.TokenID, rec))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := storage.NewCurveStore(reopened, zap.NewNop()).Get(ctx, "mint-restart")
	require.NoError(t, err)
	assert.True(t, got.Equal(rec), "got %+v want %+v", got, rec)
	assert.Equal(t, "9007199254740993", got.TokensSold.String())
	assert.Equal(t, "18014398509481985", got.AssetCollected.String())
}

func TestBackend_KeysOnlyCurveEntries(t *testing.T) {
	backend, err := OpenMem()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, "a", []byte("{}")))
	require.NoError(t, backend.Save(ctx, "b", []byte("{}")))
	require.NoError(t, backend.db.Put([]byte("settings_theme"), []byte("dark"), nil))

	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	raw, err := backend.db.Get([]byte(storage.KeyPrefix+"a"), nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestBackend_NotFoundAndDelete(t *testing.T) {
	backend, err := OpenMem()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	_, err = backend.Load(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, backend.Save(ctx, "x", []byte("payload")))
	require.NoError(t, backend.Delete(ctx, "x"))
	require.NoError(t, backend.Delete(ctx, "x"))

	_, err = backend.Load(ctx, "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBackend_ClosedIsUnavailable(t *testing.T) {
	backend, err := OpenMem()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	store := storage.NewCurveStore(backend, zap.NewNop(), storage.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	_, err = store.Get(context.Background(), "anything")
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.False(t, errors.Is(err, storage.ErrNotFound))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("   ")
	assert.Error(t, err)
}
