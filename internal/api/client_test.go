package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchlab/internal/storage"
)

func TestClient_ReadsServer(t *testing.T) {
	f := newFixture(t)
	c := NewClient(f.http.URL + "/")
	ctx := context.Background()

	list, err := c.ListCurves(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "TST", list[0].Symbol)

	one, err := c.Curve(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "0.00", one.ProgressPercent)

	q, err := c.Quote(ctx, mint, "buy", "1")
	require.NoError(t, err)
	assert.Equal(t, "1000000", q.OutputAmount)
	assert.Equal(t, "buy", q.Side)
}

func TestClient_MapsErrors(t *testing.T) {
	f := newFixture(t)
	c := NewClient(f.http.URL)
	ctx := context.Background()

	_, err := c.Curve(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = c.Quote(ctx, mint, "hold", "1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.NotEmpty(t, se.Message)
}
