// internal/storage/curve_store.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/logger"
	"github.com/rovshanmuradov/launchlab/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultListConcurrency = 8

// CurveStore keeps one curve.Record per token id: a read-through in-memory
// cache in front of a durable Backend.
//
// Entries that fail to decode are deleted from the backend and reported as
// ErrNotFound. Backend failures are returned wrapped in ErrStorageUnavailable
// and are never retried here.
//
// CurveStore is safe for concurrent use, but it does not serialize
// read-modify-write sequences on the same token; callers do that.
type CurveStore struct {
	backend         Backend
	logger          *zap.Logger
	metrics         *metrics.Collector
	now             func() time.Time
	listConcurrency int

	mu    sync.RWMutex
	cache map[string]curve.Record
}

// Option configures a CurveStore.
type Option func(*CurveStore)

// WithMetrics records backend latency and corruption counts in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *CurveStore) { s.metrics = m }
}

// WithListConcurrency bounds the number of parallel backend loads in ListAll.
func WithListConcurrency(n int) Option {
	return func(s *CurveStore) {
		if n > 0 {
			s.listConcurrency = n
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *CurveStore) { s.now = now }
}

// NewCurveStore creates a CurveStore over backend.
func NewCurveStore(backend Backend, logger *zap.Logger, opts ...Option) *CurveStore {
	s := &CurveStore{
		backend:         backend,
		logger:          logger.Named("curve_store"),
		now:             time.Now,
		listConcurrency: defaultListConcurrency,
		cache:           make(map[string]curve.Record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new curve at zero progress and the base price.
func (s *CurveStore) Create(ctx context.Context, tokenID string, totalSupply decimal.Decimal, meta curve.Metadata) (curve.Record, error) {
	rec, err := curve.NewRecord(tokenID, totalSupply, meta, s.now())
	if err != nil {
		return curve.Record{}, err
	}

	_, err = s.Get(ctx, rec.TokenID)
	switch {
	case err == nil:
		return curve.Record{}, fmt.Errorf("%w: %s", ErrAlreadyExists, rec.TokenID)
	case !errors.Is(err, ErrNotFound):
		return curve.Record{}, err
	}

	if err := s.save(ctx, rec); err != nil {
		return curve.Record{}, err
	}

	s.logger.Info("Curve created",
		zap.String("token_id", rec.TokenID),
		zap.String("total_supply", rec.TotalSupply.String()))
	return rec, nil
}

// Get returns the record of tokenID, loading it into the cache on a miss.
func (s *CurveStore) Get(ctx context.Context, tokenID string) (curve.Record, error) {
	if rec, ok := s.cached(tokenID); ok {
		return rec, nil
	}

	rec, err := s.load(ctx, tokenID)
	if err != nil {
		return curve.Record{}, err
	}

	s.mu.Lock()
	s.cache[tokenID] = rec
	s.mu.Unlock()
	return rec, nil
}

// Put stores rec under tokenID. Derived fields are recomputed and CreatedAt
// is truncated to milliseconds before writing. The cache is only updated once
// the durable write succeeded.
func (s *CurveStore) Put(ctx context.Context, tokenID string, rec curve.Record) error {
	if rec.TokenID != tokenID {
		return fmt.Errorf("%w: record %q stored under %q", curve.ErrInvalidRecord, rec.TokenID, tokenID)
	}
	rec.CreatedAt = time.UnixMilli(rec.CreatedAt.UnixMilli())
	return s.save(ctx, curve.Refresh(rec))
}

// ListAll returns every known curve, newest first. Cached records win over
// their durable copies; corrupted durable entries are discarded and skipped.
func (s *CurveStore) ListAll(ctx context.Context) ([]curve.Record, error) {
	defer logger.TrackPerformance(s.logger, "list_curves")()

	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	merged := make(map[string]curve.Record, len(s.cache)+len(keys))
	for id, rec := range s.cache {
		merged[id] = rec
	}
	s.mu.RUnlock()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.listConcurrency)

	for _, id := range keys {
		if _, ok := merged[id]; ok {
			continue
		}
		id := id
		g.Go(func() error {
			rec, err := s.Get(gctx, id)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			merged[id] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]curve.Record, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].TokenID < out[j].TokenID
	})
	return out, nil
}

// PurgeCorrupt scans the backend, deletes every entry that fails to decode
// and returns the removed token ids.
func (s *CurveStore) PurgeCorrupt(ctx context.Context) ([]string, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	var removed []string
	for _, id := range keys {
		data, err := s.backend.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, s.unavailable("load", id, err)
		}
		if _, err := decodeFor(id, data); err == nil {
			continue
		}

		if err := s.backend.Delete(ctx, id); err != nil {
			return removed, s.unavailable("delete", id, err)
		}
		s.evict(id)
		s.metrics.RecordCorruptEntry()
		s.logger.Warn("Removed corrupted curve entry", zap.String("token_id", id))
		removed = append(removed, id)
	}

	if len(removed) > 0 {
		s.logger.Info("Corrupted entries purged", zap.Int("count", len(removed)))
	}
	return removed, nil
}

// Close closes the backend.
func (s *CurveStore) Close() error {
	return s.backend.Close()
}

func (s *CurveStore) cached(tokenID string) (curve.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.cache[tokenID]
	return rec, ok
}

func (s *CurveStore) evict(tokenID string) {
	s.mu.Lock()
	delete(s.cache, tokenID)
	s.mu.Unlock()
}

func (s *CurveStore) load(ctx context.Context, tokenID string) (curve.Record, error) {
	start := time.Now()
	data, err := s.backend.Load(ctx, tokenID)
	if errors.Is(err, ErrNotFound) {
		s.metrics.RecordStoreOp("load", time.Since(start), nil)
		return curve.Record{}, fmt.Errorf("%w: %s", ErrNotFound, tokenID)
	}
	s.metrics.RecordStoreOp("load", time.Since(start), err)
	if err != nil {
		return curve.Record{}, s.unavailable("load", tokenID, err)
	}

	rec, err := decodeFor(tokenID, data)
	if err != nil {
		s.discard(ctx, tokenID, err)
		return curve.Record{}, fmt.Errorf("%w: %s", ErrNotFound, tokenID)
	}
	return rec, nil
}

// discard removes a corrupted entry. Failures are logged only: the caller
// already treats the entry as missing.
func (s *CurveStore) discard(ctx context.Context, tokenID string, cause error) {
	s.metrics.RecordCorruptEntry()
	s.logger.Warn("Discarding corrupted curve entry",
		zap.String("token_id", tokenID),
		zap.Error(cause))

	if err := s.backend.Delete(ctx, tokenID); err != nil {
		s.logger.Error("Failed to remove corrupted curve entry",
			zap.String("token_id", tokenID),
			zap.Error(err))
	}
}

func (s *CurveStore) save(ctx context.Context, rec curve.Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.backend.Save(ctx, rec.TokenID, data)
	s.metrics.RecordStoreOp("save", time.Since(start), err)
	if err != nil {
		return s.unavailable("save", rec.TokenID, err)
	}

	s.mu.Lock()
	s.cache[rec.TokenID] = rec
	s.mu.Unlock()

	s.metrics.UpdateCurveProgress(rec.TokenID, rec.ProgressPercent.InexactFloat64())
	return nil
}

func (s *CurveStore) keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := s.backend.Keys(ctx)
	s.metrics.RecordStoreOp("keys", time.Since(start), err)
	if err != nil {
		return nil, s.unavailable("keys", "", err)
	}
	return keys, nil
}

func (s *CurveStore) unavailable(op, tokenID string, err error) error {
	s.logger.Error("Curve storage failure",
		zap.String("op", op),
		zap.String("token_id", tokenID),
		zap.Error(err))
	return fmt.Errorf("%s %s: %w: %w", op, tokenID, ErrStorageUnavailable, err)
}

// decodeFor decodes data and checks it belongs to tokenID.
func decodeFor(tokenID string, data []byte) (curve.Record, error) {
	rec, err := Decode(data)
	if err != nil {
		return curve.Record{}, err
	}
	if rec.TokenID != tokenID {
		return curve.Record{}, fmt.Errorf("%w: entry %s holds curve %s", ErrStorageCorrupt, tokenID, rec.TokenID)
	}
	return rec, nil
}
