package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler receives the payload of a published event.
type Handler func(ctx context.Context, payload any) error

// Bus delivers domain events synchronously to the handlers subscribed to
// their name, in subscription order, on the publisher's goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe appends h to the handlers of name.
func (b *Bus) Subscribe(name string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers[name] = append(b.handlers[name], h)
	b.mu.Unlock()
}

// Publish runs every handler of name. The first handler error stops
// delivery and is returned to the caller.
func (b *Bus) Publish(ctx context.Context, name string, payload any) error {
	if name == "" {
		return errors.New("events: event name is required")
	}
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[name]))
	copy(handlers, b.handlers[name])
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, payload); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Subscribers returns the number of handlers registered for name.
func (b *Bus) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// On subscribes a handler that expects payloads of type T.
func On[T any](b *Bus, name string, fn func(ctx context.Context, payload T) error) {
	b.Subscribe(name, func(ctx context.Context, payload any) error {
		typed, ok := payload.(T)
		if !ok {
			var zero T
			return fmt.Errorf("unexpected payload %T, want %T", payload, zero)
		}
		return fn(ctx, typed)
	})
}
