package eventlistener

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/api"
	"github.com/rovshanmuradov/launchlab/internal/events"
	"github.com/rovshanmuradov/launchlab/internal/storage"
	"github.com/rovshanmuradov/launchlab/internal/storage/memory"
)

const mint = "7Y5UnkniiBZYmBt2dMtX1b3KLG7TM6V4SeGBgdoxQoG1"

func newServer(t *testing.T) (*api.Server, *httptest.Server, *events.Bus) {
	t.Helper()
	store := storage.NewCurveStore(memory.NewBackend(), zap.NewNop())
	bus := events.NewBus(zap.NewNop(), 16)
	srv := api.NewServer(store, bus, nil, zap.NewNop(), api.DefaultStreamConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		_ = bus.Shutdown(context.Background())
	})
	return srv, ts, bus
}

func waitForSubscribers(t *testing.T, bus *events.Bus, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return bus.Stats().HandlersPerType[events.TradeApplied] == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventListener_DeliversEvents(t *testing.T) {
	_, ts, bus := newServer(t)

	el, err := NewEventListener(ts.URL, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan api.EventMessage, 1)
	done := make(chan error, 1)
	go func() {
		done <- el.Run(ctx, func(m api.EventMessage) { received <- m })
	}()

	waitForSubscribers(t, bus, 1)
	require.NoError(t, bus.PublishSync(context.Background(), events.TradeAppliedEvent{
		BaseEvent:       events.NewBase(events.TradeApplied),
		TokenID:         mint,
		Direction:       "buy",
		TokenAmount:     decimal.NewFromInt(1_000_000),
		AssetAmount:     decimal.NewFromInt(1_000),
		Price:           decimal.RequireFromString("0.000001"),
		ProgressPercent: decimal.Zero,
		Signature:       "sig",
	}))

	select {
	case m := <-received:
		assert.Equal(t, events.TradeApplied, m.Type)
		assert.Equal(t, mint, m.TokenID)
		assert.Equal(t, "1", m.TokenAmount)
		assert.Equal(t, "0.000001", m.SOLAmount)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	waitForSubscribers(t, bus, 0)
}

func TestEventListener_GivesUpWhenServerKeepsClosing(t *testing.T) {
	srv, ts, _ := newServer(t)
	srv.Close()

	el, err := NewEventListener(ts.URL, zap.NewNop())
	require.NoError(t, err)
	el.initialBackoff = 5 * time.Millisecond
	el.maxAttempts = 2

	err = el.Run(context.Background(), func(api.EventMessage) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dropped 2 times")
}

func TestEventListener_DialFailure(t *testing.T) {
	_, ts, _ := newServer(t)
	url := ts.URL
	ts.Close()

	el, err := NewEventListener(url, zap.NewNop())
	require.NoError(t, err)
	el.initialBackoff = time.Millisecond
	el.maxAttempts = 2

	err = el.Run(context.Background(), func(api.EventMessage) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect ws://")
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "https://curves.example.com/api/", want: "wss://curves.example.com/api/ws"},
		{in: "ws://127.0.0.1:9000", want: "ws://127.0.0.1:9000/ws"},
		{in: "ftp://host", wantErr: true},
	}
	for _, tt := range tests {
		got, err := streamURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
