// internal/events/handler.go
package events

import "context"

// Handler reacts to one event. The bus calls handlers of a queued event one
// after another on its dispatch goroutine, so a slow handler delays every
// later event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function act as a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is returned by Bus.Subscribe.
type Subscription interface {
	// Unsubscribe stops delivery to the handler. Safe to call more than once.
	Unsubscribe()
}

type subscriber struct {
	id      string
	handler Handler
}

type subscription struct {
	bus *Bus
	typ EventType
	id  string
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.typ, s.id)
}
