package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/events"
)

func tradeEvent(op, dir string, lamports int64, at time.Time) events.TradeAppliedEvent {
	return events.TradeAppliedEvent{
		BaseEvent:       events.BaseEvent{EventType: events.TradeApplied, EventTime: at},
		OperationID:     op,
		TokenID:         "mint1",
		Direction:       dir,
		TokenAmount:     decimal.NewFromInt(lamports * 1_000),
		AssetAmount:     decimal.NewFromInt(lamports),
		Price:           decimal.RequireFromString("0.000001"),
		ProgressPercent: decimal.NewFromInt(1),
		Signature:       "sig-" + op,
	}
}

func TestRecorder_StoresTradeEvents(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, zap.NewNop())
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, rec.Handle(ctx, tradeEvent("op2", "sell", 40, base.Add(time.Second))))
	require.NoError(t, rec.Handle(ctx, tradeEvent("op1", "buy", 100, base)))
	require.NoError(t, rec.Handle(ctx, events.CurveCompletedEvent{BaseEvent: events.NewBase(events.CurveCompleted)}))

	trades, err := store.ByToken(ctx, "mint1")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "op1", trades[0].OperationID)
	assert.Equal(t, "sig-op2", trades[1].Signature)
	assert.Equal(t, base.UTC(), trades[0].Timestamp)

	err = rec.Handle(ctx, tradeEvent("op1", "buy", 1, base))
	assert.ErrorIs(t, err, ErrDuplicateTrade)
}

func TestMemoryStore_BatchIsAtomic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	err := store.Insert(ctx, []Trade{
		FromEvent(tradeEvent("a", "buy", 1, now)),
		FromEvent(tradeEvent("a", "buy", 2, now)),
	})
	assert.True(t, errors.Is(err, ErrDuplicateTrade))

	trades, err := store.ByToken(ctx, "mint1")
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSummarize(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	trades := []Trade{
		FromEvent(tradeEvent("1", "buy", 100, base.Add(2*time.Second))),
		FromEvent(tradeEvent("2", "buy", 50, base)),
		FromEvent(tradeEvent("3", "sell", 30, base.Add(time.Second))),
	}

	s := Summarize(trades)
	assert.Equal(t, 3, s.Trades)
	assert.Equal(t, 2, s.Buys)
	assert.Equal(t, 1, s.Sells)
	assert.True(t, s.BuyVolume.Equal(decimal.NewFromInt(150)))
	assert.True(t, s.SellVolume.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, base.UTC(), s.FirstTrade)
	assert.Equal(t, base.Add(2*time.Second).UTC(), s.LastTrade)

	empty := Summarize(nil)
	assert.Zero(t, empty.Trades)
	assert.True(t, empty.BuyVolume.IsZero())
}
