package bus

import (
	"context"
	"sync"
)

const defaultBuffer = 100

// EventBus carries inbound events from the platform adapter to the single
// dispatch loop.
type EventBus struct {
	events    chan Event
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewEventBus() *EventBus {
	return NewEventBusSize(defaultBuffer)
}

func NewEventBusSize(size int) *EventBus {
	return &EventBus{
		events: make(chan Event, size),
	}
}

// Publish queues ev, blocking while the buffer is full. It reports false
// when the bus is closed or ctx is done before the event was queued.
func (eb *EventBus) Publish(ctx context.Context, ev Event) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return false
	}

	select {
	case eb.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Consume returns the next event in arrival order. ok is false once ctx is
// done or the bus is closed and drained.
func (eb *EventBus) Consume(ctx context.Context) (Event, bool) {
	select {
	case ev, ok := <-eb.events:
		return ev, ok
	case <-ctx.Done():
		return nil, false
	}
}

func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		eb.mu.Lock()
		eb.closed = true
		eb.mu.Unlock()
		close(eb.events)
	})
}
