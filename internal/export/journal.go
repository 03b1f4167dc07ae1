package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/events"
)

// JournalHeaders lists the columns of a trade journal.
func JournalHeaders() []string {
	return []string{
		"timestamp", "operation_id", "token", "direction",
		"token_amount", "sol_amount", "price", "progress_percent", "signature",
	}
}

// TradeJournal appends applied trades to a CSV file. It is safe for
// concurrent use and flushes periodically.
type TradeJournal struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	ticker   *time.Ticker
	done     chan struct{}
	closed   bool
	logger   *zap.Logger
	filePath string

	writtenRecords uint64
	flushCount     uint64
}

// NewTradeJournal opens (or creates) the journal at filePath. The header is
// written only to an empty file.
func NewTradeJournal(filePath string, flushInterval time.Duration, logger *zap.Logger) (*TradeJournal, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	tj := &TradeJournal{
		writer:   csv.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger.Named("journal"),
		filePath: filePath,
	}

	if stat.Size() == 0 {
		if err := tj.writer.Write(JournalHeaders()); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		tj.writer.Flush()
	}

	go tj.periodicFlush()

	return tj, nil
}

// Handle implements events.Handler for trade.applied events.
func (tj *TradeJournal) Handle(_ context.Context, ev events.Event) error {
	e, ok := ev.(events.TradeAppliedEvent)
	if !ok {
		return nil
	}
	return tj.WriteRecord([]string{
		e.Timestamp().UTC().Format(time.RFC3339Nano),
		e.OperationID,
		e.TokenID,
		e.Direction,
		curve.FormatTokenAmount(e.TokenAmount),
		curve.FormatAssetAmount(e.AssetAmount),
		curve.DisplayPrice(e.Price).String(),
		e.ProgressPercent.StringFixed(2),
		e.Signature,
	})
}

// WriteRecord appends one CSV row.
func (tj *TradeJournal) WriteRecord(record []string) error {
	tj.mu.Lock()
	defer tj.mu.Unlock()

	if tj.closed {
		return fmt.Errorf("journal %s is closed", tj.filePath)
	}
	if err := tj.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	tj.writtenRecords++
	return nil
}

// Flush writes buffered rows and syncs the file.
func (tj *TradeJournal) Flush() error {
	tj.mu.Lock()
	defer tj.mu.Unlock()

	if tj.closed {
		return nil
	}
	return tj.flushLocked()
}

func (tj *TradeJournal) flushLocked() error {
	tj.writer.Flush()
	if err := tj.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := tj.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}

	tj.flushCount++
	return nil
}

func (tj *TradeJournal) periodicFlush() {
	for {
		select {
		case <-tj.ticker.C:
			if err := tj.Flush(); err != nil {
				tj.logger.Error("Periodic journal flush failed",
					zap.String("file", tj.filePath),
					zap.Error(err))
			}
		case <-tj.done:
			return
		}
	}
}

// Close flushes pending rows and closes the file. Calling it twice is a no-op.
func (tj *TradeJournal) Close() error {
	tj.mu.Lock()
	defer tj.mu.Unlock()

	if tj.closed {
		return nil
	}
	tj.closed = true
	close(tj.done)
	tj.ticker.Stop()

	if err := tj.flushLocked(); err != nil {
		tj.file.Close()
		return fmt.Errorf("flush on close: %w", err)
	}
	if err := tj.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	tj.logger.Info("Trade journal closed",
		zap.String("file", tj.filePath),
		zap.Uint64("written_records", tj.writtenRecords),
		zap.Uint64("flush_count", tj.flushCount))
	return nil
}

// Stats returns the number of rows written and flushes performed.
func (tj *TradeJournal) Stats() (records, flushes uint64) {
	tj.mu.Lock()
	defer tj.mu.Unlock()
	return tj.writtenRecords, tj.flushCount
}
