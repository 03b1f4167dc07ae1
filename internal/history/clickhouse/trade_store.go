package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchlab/internal/history"
)

// TradeStore implements history.Store on the curve_trades table.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

var _ history.Store = (*TradeStore)(nil)

// Insert adds trades in one batch. ReplacingMergeTree does not enforce
// uniqueness, so operation ids are checked before the batch is sent.
func (s *TradeStore) Insert(ctx context.Context, trades []history.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if _, dup := seen[t.OperationID]; dup {
			return fmt.Errorf("%w: %s", history.ErrDuplicateTrade, t.OperationID)
		}
		seen[t.OperationID] = struct{}{}

		exists, err := s.exists(ctx, t.TokenID, t.OperationID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", history.ErrDuplicateTrade, t.OperationID)
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO curve_trades (
			operation_id, token_id, timestamp_ms, direction,
			token_amount, asset_amount, price, progress_percent, signature
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		err = batch.Append(
			t.OperationID, t.TokenID, uint64(t.Timestamp.UnixMilli()), t.Direction,
			t.TokenAmount.String(), t.AssetAmount.String(), t.Price.String(),
			t.ProgressPercent.InexactFloat64(), t.Signature,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ByToken returns the trades of tokenID ordered by timestamp ASC.
func (s *TradeStore) ByToken(ctx context.Context, tokenID string) ([]history.Trade, error) {
	query := `
		SELECT operation_id, token_id, timestamp_ms, direction,
			token_amount, asset_amount, price, progress_percent, signature
		FROM curve_trades FINAL
		WHERE token_id = ?
		ORDER BY timestamp_ms ASC, operation_id ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query by token id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *TradeStore) exists(ctx context.Context, tokenID, operationID string) (bool, error) {
	query := `
		SELECT count(*) FROM curve_trades
		WHERE token_id = ? AND operation_id = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, tokenID, operationID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTrades(rows chRows) ([]history.Trade, error) {
	var trades []history.Trade

	for rows.Next() {
		var (
			t                        history.Trade
			timestampMs              uint64
			tokenAmount, assetAmount string
			price                    string
			progress                 float64
		)
		err := rows.Scan(
			&t.OperationID, &t.TokenID, &timestampMs, &t.Direction,
			&tokenAmount, &assetAmount, &price, &progress, &t.Signature,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		if t.TokenAmount, err = decimal.NewFromString(tokenAmount); err != nil {
			return nil, fmt.Errorf("trade %s token_amount: %w", t.OperationID, err)
		}
		if t.AssetAmount, err = decimal.NewFromString(assetAmount); err != nil {
			return nil, fmt.Errorf("trade %s asset_amount: %w", t.OperationID, err)
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("trade %s price: %w", t.OperationID, err)
		}
		t.ProgressPercent = decimal.NewFromFloat(progress)
		t.Timestamp = time.UnixMilli(int64(timestampMs)).UTC()

		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
