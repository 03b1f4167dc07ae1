package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/events"
)

// streamedTypes are forwarded to websocket clients.
var streamedTypes = []events.EventType{
	events.CurveCreated,
	events.TradeApplied,
	events.CurveCompleted,
}

// EventMessage is the websocket frame for one event. Amounts are whole
// units as decimal strings.
type EventMessage struct {
	Type            events.EventType `json:"type"`
	Time            time.Time        `json:"time"`
	TokenID         string           `json:"token_id"`
	Name            string           `json:"name,omitempty"`
	Symbol          string           `json:"symbol,omitempty"`
	Direction       string           `json:"direction,omitempty"`
	TokenAmount     string           `json:"token_amount,omitempty"`
	SOLAmount       string           `json:"sol_amount,omitempty"`
	Price           string           `json:"price,omitempty"`
	ProgressPercent string           `json:"progress_percent,omitempty"`
	Signature       string           `json:"signature,omitempty"`
}

func newEventMessage(ev events.Event) (EventMessage, bool) {
	msg := EventMessage{Type: ev.Type(), Time: ev.Timestamp().UTC()}

	switch e := ev.(type) {
	case events.CurveCreatedEvent:
		msg.TokenID = e.TokenID
		msg.Name = e.Name
		msg.Symbol = e.Symbol
		msg.TokenAmount = curve.FormatTokenAmount(e.TotalSupply)
	case events.TradeAppliedEvent:
		msg.TokenID = e.TokenID
		msg.Direction = e.Direction
		msg.TokenAmount = curve.FormatTokenAmount(e.TokenAmount)
		msg.SOLAmount = curve.FormatAssetAmount(e.AssetAmount)
		msg.Price = curve.DisplayPrice(e.Price).String()
		msg.ProgressPercent = e.ProgressPercent.StringFixed(2)
		msg.Signature = e.Signature
	case events.CurveCompletedEvent:
		msg.TokenID = e.TokenID
		msg.SOLAmount = curve.FormatAssetAmount(e.AssetCollected)
		msg.ProgressPercent = "100.00"
	default:
		return EventMessage{}, false
	}
	return msg, true
}

// handleStream upgrades to a websocket and forwards curve events until the
// client disconnects or the server closes. Slow clients lose events rather
// than stall the bus.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	out := make(chan EventMessage, s.stream.ClientBuffer)
	var dropped atomic.Uint64

	forward := events.HandlerFunc(func(_ context.Context, ev events.Event) error {
		msg, ok := newEventMessage(ev)
		if !ok {
			return nil
		}
		select {
		case out <- msg:
		default:
			dropped.Add(1)
		}
		return nil
	})

	// Subscribe before the handshake completes so no event published after
	// the client connects is missed.
	subs := make([]events.Subscription, 0, len(streamedTypes))
	for _, t := range streamedTypes {
		subs = append(subs, s.source.Subscribe(t, forward))
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Debug("Stream client connected", zap.String("remote", r.RemoteAddr))

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.stream.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			s.logger.Debug("Stream client disconnected",
				zap.String("remote", r.RemoteAddr),
				zap.Uint64("dropped_events", dropped.Load()))
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(s.stream.WriteTimeout))
			return
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(s.stream.WriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("Stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.stream.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
