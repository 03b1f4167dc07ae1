// Package api serves curve listings, quotes, metrics and a live event
// stream over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/events"
	"github.com/rovshanmuradov/launchlab/internal/export"
	"github.com/rovshanmuradov/launchlab/internal/storage"
)

// CurveReader is the read side of the curve store.
type CurveReader interface {
	Get(ctx context.Context, tokenID string) (curve.Record, error)
	ListAll(ctx context.Context) ([]curve.Record, error)
}

// EventSource delivers domain events. *events.Bus satisfies it.
type EventSource interface {
	Subscribe(eventType events.EventType, handler events.Handler) events.Subscription
}

// StreamConfig tunes websocket event streams.
type StreamConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	ClientBuffer int // events queued per client before dropping
}

// DefaultStreamConfig returns the stream defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		ClientBuffer: 64,
	}
}

// Server is the HTTP surface of curvectl serve.
type Server struct {
	curves   CurveReader
	source   EventSource
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	stream   StreamConfig
	upgrader websocket.Upgrader

	closeOnce sync.Once
	done      chan struct{}
}

// NewServer creates a server. gatherer may be nil to disable /metrics.
func NewServer(curves CurveReader, source EventSource, gatherer prometheus.Gatherer, logger *zap.Logger, stream StreamConfig) *Server {
	return &Server{
		curves:   curves,
		source:   source,
		gatherer: gatherer,
		logger:   logger.Named("api"),
		stream:   stream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /curves", s.handleList)
	mux.HandleFunc("GET /curves/{id}", s.handleGet)
	mux.HandleFunc("GET /curves/{id}/quote", s.handleQuote)
	mux.HandleFunc("GET /ws", s.handleStream)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Close ends every open event stream.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.curves.ListAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]export.CurveJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, export.NewCurveJSON(curve.Summarize(rec)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.curves.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, export.NewCurveJSON(curve.Summarize(rec)))
}

// QuoteResponse is the body of GET /curves/{id}/quote. Amounts are in
// whole units.
type QuoteResponse struct {
	TokenID            string `json:"token_id"`
	Side               string `json:"side"`
	InputAmount        string `json:"input_amount"`
	OutputAmount       string `json:"output_amount"`
	SOLCost            string `json:"sol_cost,omitempty"`
	SpotPrice          string `json:"spot_price"`
	NewPrice           string `json:"new_price"`
	PriceImpactPercent string `json:"price_impact_percent"`
	Capped             bool   `json:"capped,omitempty"`
}

// handleQuote quotes ?side=buy&amount=<SOL> or ?side=sell&amount=<tokens>.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	dir, err := curve.ParseDirection(r.URL.Query().Get("side"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.curves.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	amount := r.URL.Query().Get("amount")
	var resp QuoteResponse
	switch dir {
	case curve.Buy:
		lamports, err := curve.ParseAssetAmount(amount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		q, err := curve.QuoteBuy(rec, lamports)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp = QuoteResponse{
			InputAmount:        curve.FormatAssetAmount(q.InputAssetAmount),
			OutputAmount:       curve.FormatTokenAmount(q.OutputTokenAmount),
			SOLCost:            curve.FormatAssetAmount(q.AssetCost),
			SpotPrice:          curve.DisplayPrice(q.SpotPrice).String(),
			NewPrice:           curve.DisplayPrice(q.NewPrice).String(),
			PriceImpactPercent: q.PriceImpactPercent.String(),
			Capped:             q.Capped,
		}
	default:
		units, err := curve.ParseTokenAmount(amount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		q, err := curve.QuoteSell(rec, units)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp = QuoteResponse{
			InputAmount:        curve.FormatTokenAmount(q.InputTokenAmount),
			OutputAmount:       curve.FormatAssetAmount(q.OutputAssetAmount),
			SpotPrice:          curve.DisplayPrice(q.SpotPrice).String(),
			NewPrice:           curve.DisplayPrice(q.NewPrice).String(),
			PriceImpactPercent: q.PriceImpactPercent.String(),
		}
	}
	resp.TokenID = rec.TokenID
	resp.Side = dir.String()
	writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, curve.ErrInvalidAmount), errors.Is(err, curve.ErrInvalidDirection):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
