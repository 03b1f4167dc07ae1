// internal/trade/service.go
package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/events"
	"github.com/rovshanmuradov/launchlab/internal/logger"
	"github.com/rovshanmuradov/launchlab/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CurveStore is the persistence the service trades against.
type CurveStore interface {
	Create(ctx context.Context, tokenID string, totalSupply decimal.Decimal, meta curve.Metadata) (curve.Record, error)
	Get(ctx context.Context, tokenID string) (curve.Record, error)
	Put(ctx context.Context, tokenID string, rec curve.Record) error
}

// Publisher receives domain events. *events.Bus satisfies it.
type Publisher interface {
	Publish(event events.Event) error
}

// Result describes an executed trade.
type Result struct {
	OperationID string
	Signature   string
	Direction   curve.Direction
	TokenAmount decimal.Decimal // token units moved
	AssetAmount decimal.Decimal // lamports moved
	Capped      bool
	Completed   bool // this trade completed the curve
	Record      curve.Record
}

// Service executes trades: quote, settle on the ledger, then apply and
// persist. Trades on the same token are serialized; different tokens run
// concurrently.
type Service struct {
	store   CurveStore
	settler Settler
	bus     Publisher
	metrics *metrics.Collector
	logger  *zap.Logger
	locks   *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes curve and trade events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.bus = p }
}

// WithMetrics records trade outcomes in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a trade service.
func NewService(store CurveStore, settler Settler, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		settler: settler,
		logger:  logger.Named("trade"),
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Launch registers a new curve and announces it.
func (s *Service) Launch(ctx context.Context, tokenID string, totalSupply decimal.Decimal, meta curve.Metadata) (curve.Record, error) {
	rec, err := s.store.Create(ctx, tokenID, totalSupply, meta)
	if err != nil {
		return curve.Record{}, err
	}

	s.publish(events.CurveCreatedEvent{
		BaseEvent:   events.NewBase(events.CurveCreated),
		TokenID:     rec.TokenID,
		Name:        rec.Metadata.Name,
		Symbol:      rec.Metadata.Symbol,
		TotalSupply: rec.TotalSupply,
	})
	return rec, nil
}

// QuoteBuy quotes a buy of lamports against the stored curve.
func (s *Service) QuoteBuy(ctx context.Context, tokenID string, lamports decimal.Decimal) (curve.BuyQuote, error) {
	rec, err := s.store.Get(ctx, tokenID)
	if err != nil {
		return curve.BuyQuote{}, err
	}
	return curve.QuoteBuy(rec, lamports)
}

// QuoteSell quotes a sell of token units against the stored curve.
func (s *Service) QuoteSell(ctx context.Context, tokenID string, units decimal.Decimal) (curve.SellQuote, error) {
	rec, err := s.store.Get(ctx, tokenID)
	if err != nil {
		return curve.SellQuote{}, err
	}
	return curve.QuoteSell(rec, units)
}

// Buy spends lamports on tokenID. Output is limited to the unsold
// allocation; only the lamports actually needed are settled.
func (s *Service) Buy(ctx context.Context, tokenID string, lamports decimal.Decimal) (Result, error) {
	return s.execute(ctx, tokenID, curve.Buy, func(rec curve.Record) (Settlement, bool, error) {
		if rec.IsComplete {
			return Settlement{}, false, fmt.Errorf("%w: %s", ErrCurveComplete, tokenID)
		}
		q, err := curve.QuoteBuy(rec, lamports)
		if err != nil {
			return Settlement{}, false, err
		}
		if q.OutputTokenAmount.IsZero() {
			return Settlement{}, false, fmt.Errorf("%w: %s lamports buys no token units", curve.ErrInvalidAmount, lamports)
		}
		return Settlement{
			TokenID:     rec.TokenID,
			Direction:   curve.Buy,
			AssetAmount: q.AssetCost,
			TokenAmount: q.OutputTokenAmount,
		}, q.Capped, nil
	})
}

// Sell returns units token units to tokenID.
func (s *Service) Sell(ctx context.Context, tokenID string, units decimal.Decimal) (Result, error) {
	return s.execute(ctx, tokenID, curve.Sell, func(rec curve.Record) (Settlement, bool, error) {
		q, err := curve.QuoteSell(rec, units)
		if err != nil {
			return Settlement{}, false, err
		}
		if q.OutputAssetAmount.IsZero() {
			return Settlement{}, false, fmt.Errorf("%w: %s units sell for no lamports", curve.ErrInvalidAmount, units)
		}
		return Settlement{
			TokenID:     rec.TokenID,
			Direction:   curve.Sell,
			AssetAmount: q.OutputAssetAmount,
			TokenAmount: units,
		}, false, nil
	})
}

func (s *Service) execute(
	ctx context.Context,
	tokenID string,
	dir curve.Direction,
	plan func(curve.Record) (Settlement, bool, error),
) (res Result, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordTrade(ctx, dir.String(), time.Since(start), err) }()

	opLogger, opID := logger.WithOperation(s.logger, dir.String())

	if !s.settler.IsConnected() {
		return Result{}, ErrWalletNotConnected
	}

	unlock := s.locks.Lock(tokenID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rec, err := s.store.Get(ctx, tokenID)
	if err != nil {
		return Result{}, err
	}

	st, capped, err := plan(rec)
	if err != nil {
		return Result{}, err
	}

	sig, err := s.settler.Settle(ctx, st)
	if err != nil {
		opLogger.Warn("Settlement failed",
			zap.String("token_id", tokenID),
			zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrSettlementFailed, err)
	}

	next, err := curve.ApplyTrade(rec, st.TokenAmount, st.AssetAmount, dir)
	if err != nil {
		return Result{}, err
	}
	if err := s.store.Put(ctx, tokenID, next); err != nil {
		// The ledger already moved; the operator has to reconcile by signature.
		opLogger.Error("Settled trade not persisted",
			zap.String("token_id", tokenID),
			zap.String("signature", sig),
			zap.Error(err))
		return Result{}, err
	}

	completed := !rec.IsComplete && next.IsComplete
	res = Result{
		OperationID: opID,
		Signature:   sig,
		Direction:   dir,
		TokenAmount: st.TokenAmount,
		AssetAmount: st.AssetAmount,
		Capped:      capped,
		Completed:   completed,
		Record:      next,
	}

	opLogger.Info("Trade applied",
		zap.String("token_id", tokenID),
		zap.String("direction", dir.String()),
		zap.String("progress", next.ProgressPercent.StringFixed(2)),
		zap.String("signature", sig))

	s.publish(events.TradeAppliedEvent{
		BaseEvent:       events.NewBase(events.TradeApplied),
		OperationID:     opID,
		TokenID:         tokenID,
		Direction:       dir.String(),
		TokenAmount:     st.TokenAmount,
		AssetAmount:     st.AssetAmount,
		Price:           next.CurrentPrice,
		ProgressPercent: next.ProgressPercent,
		Signature:       sig,
	})

	if completed {
		opLogger.Info("Curve completed",
			zap.String("token_id", tokenID),
			zap.String("sol_collected", curve.FormatAssetAmount(next.AssetCollected)))
		s.publish(events.CurveCompletedEvent{
			BaseEvent:      events.NewBase(events.CurveCompleted),
			TokenID:        tokenID,
			AssetCollected: next.AssetCollected,
		})
	}

	return res, nil
}

// publish never fails a trade: events are advisory.
func (s *Service) publish(ev events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ev); err != nil && !errors.Is(err, events.ErrBusClosed) {
		s.logger.Warn("Failed to publish event",
			zap.String("type", string(ev.Type())),
			zap.Error(err))
	}
}
