// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusClosed is returned by Publish after Shutdown.
	ErrBusClosed = errors.New("event bus is shutting down")
	// ErrBusFull is returned by Publish when the queue is full; the event is dropped.
	ErrBusFull = errors.New("event channel full")
)

// Bus is an in-memory event bus. Publish queues events and a single dispatch
// goroutine delivers them in publish order; for each event, handlers run in
// subscription order. PublishSync delivers on the caller's goroutine.
type Bus struct {
	logger *zap.Logger
	queue  chan Event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// sendMu orders Publish against Shutdown so nothing is queued after the
	// final drain.
	sendMu sync.RWMutex
	closed bool

	mu   sync.RWMutex
	subs map[EventType][]subscriber // copy-on-write
}

// NewBus starts a bus whose queue holds bufferSize events.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		logger: logger.Named("event_bus"),
		queue:  make(chan Event, bufferSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		subs:   make(map[EventType][]subscriber),
	}
	go b.run()
	return b
}

// Subscribe registers handler for events of eventType.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	id := uuid.New().String()

	b.mu.Lock()
	current := b.subs[eventType]
	next := make([]subscriber, len(current), len(current)+1)
	copy(next, current)
	b.subs[eventType] = append(next, subscriber{id: id, handler: handler})
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{bus: b, typ: eventType, id: id}
}

// SubscribeFunc subscribes a plain function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues event for delivery without blocking.
func (b *Bus) Publish(event Event) error {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- event:
		return nil
	default:
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrBusFull
	}
}

// PublishSync runs every handler of event on the calling goroutine and joins
// their errors.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := b.subs[event.Type()]
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", s.id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s handlers failed: %w", event.Type(), errors.Join(errs...))
	}
	return nil
}

// run delivers queued events until Shutdown, then drains what is left.
func (b *Bus) run() {
	defer close(b.done)

	for {
		select {
		case ev := <-b.queue:
			b.dispatch(b.ctx, ev)
		case <-b.ctx.Done():
			for {
				select {
				case ev := <-b.queue:
					b.dispatch(context.WithoutCancel(b.ctx), ev)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, ev Event) {
	if err := b.PublishSync(ctx, ev); err != nil {
		b.logger.Error("Failed to process event",
			zap.String("event_type", string(ev.Type())),
			zap.Error(err))
	}
}

func (b *Bus) unsubscribe(eventType EventType, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subs[eventType]
	next := make([]subscriber, 0, len(current))
	for _, s := range current {
		if s.id != id {
			next = append(next, s)
		}
	}
	if len(next) == 0 {
		delete(b.subs, eventType)
	} else {
		b.subs[eventType] = next
	}

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Shutdown stops accepting events and waits until every queued event has
// been delivered, or ctx expires.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")

	b.sendMu.Lock()
	b.closed = true
	b.sendMu.Unlock()
	b.cancel()

	select {
	case <-b.done:
		b.logger.Info("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout",
			zap.Int("pending_events", len(b.queue)))
		return ctx.Err()
	}
}

// Stats describes the current state of a Bus.
type Stats struct {
	BufferSize      int
	PendingEvents   int
	HandlersPerType map[EventType]int
}

// Stats returns queue depth and subscriber counts.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[EventType]int, len(b.subs))
	for t, subs := range b.subs {
		counts[t] = len(subs)
	}
	return Stats{
		BufferSize:      cap(b.queue),
		PendingEvents:   len(b.queue),
		HandlersPerType: counts,
	}
}
