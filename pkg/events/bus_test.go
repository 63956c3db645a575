package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedBus(t *testing.T) Bus {
	t.Helper()
	bus := NewEventBus()
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(bus.Stop)
	return bus
}

func TestEventBusBasicPublishSubscribe(t *testing.T) {
	bus := startedBus(t)
	ch := make(chan Event, 1)

	bus.Subscribe(EventStateChanged, ch)

	evt := Event{
		Type:      EventStateChanged,
		Timestamp: time.Now(),
		Payload:   StatePayload{From: "loading", To: "playing"},
	}
	assert.True(t, bus.Publish(evt))

	received := <-ch
	assert.Equal(t, EventStateChanged, received.Type)
	assert.Equal(t, "playing", received.Payload.(StatePayload).To)
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := startedBus(t)
	ch := make(chan Event, 1)

	bus.Subscribe(EventSpeakingChanged, ch)
	bus.Unsubscribe(EventSpeakingChanged, ch)

	bus.Publish(Event{Type: EventSpeakingChanged, Timestamp: time.Now()})

	select {
	case <-ch:
		t.Error("Should not receive event after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := startedBus(t)
	ch1 := make(chan Event, 1)
	ch2 := make(chan Event, 1)

	bus.Subscribe(EventTrackSetChanged, ch1)
	bus.Subscribe(EventTrackSetChanged, ch2)

	bus.Publish(Event{Type: EventTrackSetChanged, Timestamp: time.Now()})

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			assert.Equal(t, EventTrackSetChanged, received.Type)
		case <-time.After(100 * time.Millisecond):
			t.Error("Timeout waiting for event")
		}
	}
}

func TestEventBusOnlyDeliversSubscribedType(t *testing.T) {
	bus := startedBus(t)
	ch := make(chan Event, 1)
	bus.Subscribe(EventPlaybackBlocked, ch)

	bus.Publish(Event{Type: EventPlaybackUnlocked, Timestamp: time.Now()})

	assert.Len(t, ch, 0)
}

func TestEventBusChannelBlocking(t *testing.T) {
	bus := startedBus(t)
	ch := make(chan Event, 1)
	bus.Subscribe(EventMuteChanged, ch)

	require.True(t, bus.Publish(Event{Type: EventMuteChanged, Payload: MutePayload{Muted: true}}))

	var wg sync.WaitGroup
	var secondDelivered bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		secondDelivered = bus.Publish(Event{Type: EventMuteChanged, Payload: MutePayload{Muted: false}})
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		assert.False(t, secondDelivered, "second event should be dropped when channel is full")
	case <-time.After(100 * time.Millisecond):
		t.Error("Publish blocked when channel was full")
	}
}

func TestEventBusStartStop(t *testing.T) {
	bus := NewEventBus()
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Start(ctx))

	bus.Stop()
	bus.Stop()

	require.NoError(t, bus.Start(ctx))
	assert.True(t, bus.(*eventBus).Running())
	bus.Stop()
	assert.False(t, bus.(*eventBus).Running())
}

func TestEventBusStopsWithContext(t *testing.T) {
	bus := NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Start(ctx))

	cancel()

	assert.Eventually(t, func() bool {
		return !bus.(*eventBus).Running()
	}, time.Second, 5*time.Millisecond)
}

func TestEventBusDeliversOnlyWhileRunning(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(EventStateChanged, ch)

	assert.False(t, bus.Publish(Event{Type: EventStateChanged}))
	assert.Len(t, ch, 0)

	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.Publish(Event{Type: EventStateChanged}))
	<-ch

	bus.Stop()
	assert.False(t, bus.Publish(Event{Type: EventStateChanged}))
	assert.Len(t, ch, 0)
}
