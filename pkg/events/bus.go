package events

import (
	"context"
	"sync"
)

// Bus is a typed publish/subscribe hub. Subscribers register channels; Publish
// never blocks and drops the event for any subscriber whose channel is full.
// Nothing is delivered unless the bus is running.
type Bus interface {
	Subscribe(eventType EventType, ch chan<- Event)
	Unsubscribe(eventType EventType, ch chan<- Event)
	// Publish returns true when every subscriber received the event. It
	// returns false without delivering when the bus is not running.
	Publish(evt Event) bool
	Start(ctx context.Context) error
	Stop()
}

type eventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan<- Event
	running     bool
	run         uint64
	cancel      context.CancelFunc
}

// NewEventBus creates an in-process Bus.
func NewEventBus() Bus {
	return &eventBus{
		subscribers: make(map[EventType][]chan<- Event),
	}
}

func (b *eventBus) Subscribe(eventType EventType, ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
}

func (b *eventBus) Unsubscribe(eventType EventType, ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	chans := b.subscribers[eventType]
	for i, c := range chans {
		if c == ch {
			chans = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(chans) == 0 {
		delete(b.subscribers, eventType)
		return
	}
	b.subscribers[eventType] = chans
}

func (b *eventBus) Publish(evt Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.running {
		return false
	}
	delivered := true
	for _, ch := range b.subscribers[evt.Type] {
		select {
		case ch <- evt:
		default:
			delivered = false
		}
	}
	return delivered
}

// Start enables delivery until Stop is called or ctx is done. Repeated calls
// are harmless.
func (b *eventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.running = true
	b.run++
	run := b.run

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.run == run {
			b.running = false
			b.cancel = nil
		}
	}()
	return nil
}

// Running reports whether Start was called without a matching Stop.
func (b *eventBus) Running() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

func (b *eventBus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}
