// internal/metrics/collector.go
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "launchlab"

// Collector owns the prometheus collectors of the curve engine. A nil
// *Collector is valid and records nothing.
type Collector struct {
	trades         *prometheus.CounterVec
	tradeDuration  *prometheus.HistogramVec
	storeOps       *prometheus.CounterVec
	storeLatency   *prometheus.HistogramVec
	corruptEntries prometheus.Counter
	curveProgress  *prometheus.GaugeVec
	rpcLatency     *prometheus.HistogramVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Total number of trades applied to bonding curves",
			},
			[]string{"status", "direction"},
		),
		tradeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trade_duration_seconds",
				Help:      "Quote to persisted state duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"direction"},
		),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Curve store operations by outcome",
			},
			[]string{"op", "status"},
		),
		storeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_latency_seconds",
				Help:      "Durable store latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"op"},
		),
		corruptEntries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_corrupt_entries_total",
				Help:      "Corrupted curve entries discarded on load",
			},
		),
		curveProgress: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "curve_progress_percent",
				Help:      "Bonding curve progress per token",
			},
			[]string{"token"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
			},
			[]string{"method"},
		),
	}

	reg.MustRegister(
		c.trades,
		c.tradeDuration,
		c.storeOps,
		c.storeLatency,
		c.corruptEntries,
		c.curveProgress,
		c.rpcLatency,
	)
	return c
}

// Reset clears all vector metrics (useful in tests).
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.trades.Reset()
	c.tradeDuration.Reset()
	c.storeOps.Reset()
	c.storeLatency.Reset()
	c.curveProgress.Reset()
	c.rpcLatency.Reset()
}

// RecordTrade records the outcome of one trade. A cancelled context is
// counted separately and its duration is not observed.
func (c *Collector) RecordTrade(ctx context.Context, direction string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		c.trades.WithLabelValues("cancelled", direction).Inc()
		return
	}

	status := "success"
	if err != nil {
		status = "failed"
	}
	c.trades.WithLabelValues(status, direction).Inc()
	c.tradeDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

// RecordStoreOp records one durable store call.
func (c *Collector) RecordStoreOp(op string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	c.storeOps.WithLabelValues(op, status).Inc()
	c.storeLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordCorruptEntry counts a discarded corrupted entry.
func (c *Collector) RecordCorruptEntry() {
	if c == nil {
		return
	}
	c.corruptEntries.Inc()
}

// UpdateCurveProgress sets the progress gauge of a token.
func (c *Collector) UpdateCurveProgress(tokenID string, percent float64) {
	if c == nil {
		return
	}
	c.curveProgress.WithLabelValues(tokenID).Set(percent)
}

// RecordRPCLatency records an RPC round trip.
func (c *Collector) RecordRPCLatency(method string, duration time.Duration) {
	if c == nil {
		return
	}
	c.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}
