// Package history keeps an append-only record of applied trades for
// analytics. It is fed from trade.applied events and never consulted when
// pricing.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/events"
)

// ErrDuplicateTrade is returned when a trade with the same operation id is
// already recorded.
var ErrDuplicateTrade = errors.New("trade already recorded")

// Trade is one applied trade.
type Trade struct {
	OperationID     string
	TokenID         string
	Direction       string
	TokenAmount     decimal.Decimal // token units
	AssetAmount     decimal.Decimal // lamports
	Price           decimal.Decimal // post-trade spot price
	ProgressPercent decimal.Decimal
	Signature       string
	Timestamp       time.Time
}

// Store persists trades.
type Store interface {
	// Insert adds trades atomically. Fails the whole batch on a duplicate
	// operation id.
	Insert(ctx context.Context, trades []Trade) error
	// ByToken returns the trades of tokenID, oldest first.
	ByToken(ctx context.Context, tokenID string) ([]Trade, error)
}

// FromEvent converts an applied-trade event.
func FromEvent(e events.TradeAppliedEvent) Trade {
	return Trade{
		OperationID:     e.OperationID,
		TokenID:         e.TokenID,
		Direction:       e.Direction,
		TokenAmount:     e.TokenAmount,
		AssetAmount:     e.AssetAmount,
		Price:           e.Price,
		ProgressPercent: e.ProgressPercent,
		Signature:       e.Signature,
		Timestamp:       e.Timestamp().UTC().Truncate(time.Millisecond),
	}
}

// Stats aggregates a trade list.
type Stats struct {
	Trades     int
	Buys       int
	Sells      int
	BuyVolume  decimal.Decimal // lamports
	SellVolume decimal.Decimal // lamports
	FirstTrade time.Time
	LastTrade  time.Time
}

// Summarize aggregates trades. Trades need not be sorted.
func Summarize(trades []Trade) Stats {
	s := Stats{BuyVolume: decimal.Zero, SellVolume: decimal.Zero}
	for _, t := range trades {
		s.Trades++
		switch t.Direction {
		case "buy":
			s.Buys++
			s.BuyVolume = s.BuyVolume.Add(t.AssetAmount)
		case "sell":
			s.Sells++
			s.SellVolume = s.SellVolume.Add(t.AssetAmount)
		}
		if s.FirstTrade.IsZero() || t.Timestamp.Before(s.FirstTrade) {
			s.FirstTrade = t.Timestamp
		}
		if t.Timestamp.After(s.LastTrade) {
			s.LastTrade = t.Timestamp
		}
	}
	return s
}

// Recorder writes trade.applied events into a Store.
type Recorder struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration
}

// NewRecorder creates a recorder. Subscribe it to events.TradeApplied.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger.Named("history"),
		timeout: 5 * time.Second,
	}
}

// Handle implements events.Handler. Other event types are ignored.
func (r *Recorder) Handle(ctx context.Context, ev events.Event) error {
	e, ok := ev.(events.TradeAppliedEvent)
	if !ok {
		return nil
	}

	// The bus cancels its context on shutdown while still draining.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.store.Insert(ctx, []Trade{FromEvent(e)}); err != nil {
		r.logger.Error("Failed to record trade",
			zap.String("token_id", e.TokenID),
			zap.String("operation_id", e.OperationID),
			zap.Error(err))
		return fmt.Errorf("record trade %s: %w", e.OperationID, err)
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	trades map[string][]Trade
	seen   map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades: make(map[string][]Trade),
		seen:   make(map[string]struct{}),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Insert(_ context.Context, trades []Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		_, dup := m.seen[t.OperationID]
		_, dupBatch := batch[t.OperationID]
		if dup || dupBatch {
			return fmt.Errorf("%w: %s", ErrDuplicateTrade, t.OperationID)
		}
		batch[t.OperationID] = struct{}{}
	}

	for _, t := range trades {
		m.seen[t.OperationID] = struct{}{}
		m.trades[t.TokenID] = append(m.trades[t.TokenID], t)
	}
	return nil
}

func (m *MemoryStore) ByToken(_ context.Context, tokenID string) ([]Trade, error) {
	m.mu.RLock()
	out := append([]Trade(nil), m.trades[tokenID]...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
