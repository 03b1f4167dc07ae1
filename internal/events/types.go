// internal/events/types.go
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType represents the type of event.
type EventType string

const (
	// Curve lifecycle events
	CurveCreated   EventType = "curve.created"
	CurveCompleted EventType = "curve.completed"

	// Trade events
	TradeApplied EventType = "trade.applied"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// CurveCreatedEvent is emitted once a curve record has been persisted.
type CurveCreatedEvent struct {
	BaseEvent
	TokenID     string
	Name        string
	Symbol      string
	TotalSupply decimal.Decimal
}

// TradeAppliedEvent is emitted after a settled trade has been stored.
type TradeAppliedEvent struct {
	BaseEvent
	OperationID     string
	TokenID         string
	Direction       string
	TokenAmount     decimal.Decimal // token units moved
	AssetAmount     decimal.Decimal // lamports moved
	Price           decimal.Decimal // post-trade spot price
	ProgressPercent decimal.Decimal
	Signature       string
}

// CurveCompletedEvent is emitted on the trade that first completes a curve.
type CurveCompletedEvent struct {
	BaseEvent
	TokenID        string
	AssetCollected decimal.Decimal
}
