// Package server bridges a presentation Controller to rendering clients over
// websocket. Clients receive the Controller's Snapshot on connect and on
// every bus event, and send back commands and user gestures.
package server

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/realtime-ai/streamview/pkg/events"
	"github.com/realtime-ai/streamview/pkg/logger"
	"github.com/realtime-ai/streamview/pkg/playback"
	"github.com/realtime-ai/streamview/pkg/presentation"
)

// Commander is the part of presentation.Controller the hub drives.
type Commander interface {
	Snapshot() presentation.Snapshot
	RetryAcquire()
	ToggleMute()
}

var hubEvents = []events.EventType{
	events.EventStateChanged,
	events.EventSpeakingChanged,
	events.EventTrackSetChanged,
	events.EventPlaybackBlocked,
	events.EventPlaybackUnlocked,
	events.EventAnalysisUnavailable,
	events.EventMuteChanged,
}

// Hub fans Controller updates out to websocket clients. It is also the
// playback.InteractionSource of the process: interaction commands from any
// client are delivered to the registered callbacks.
type Hub struct {
	log      logger.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	ctrl      Commander
	clients   map[string]*client
	listeners map[uint64]func(playback.Interaction)
	nextID    uint64
}

func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log: log.With("component", "hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ctx:       ctx,
		cancel:    cancel,
		clients:   make(map[string]*client),
		listeners: make(map[uint64]func(playback.Interaction)),
	}
}

// Bind sets the Controller commands are forwarded to. Until then clients get
// an error for every command.
func (h *Hub) Bind(ctrl Commander) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctrl = ctrl
}

func (h *Hub) commander() Commander {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctrl
}

// Run forwards bus events to clients until ctx is done or the hub is closed.
func (h *Hub) Run(ctx context.Context, bus events.Bus) error {
	ch := make(chan events.Event, 64)
	for _, t := range hubEvents {
		bus.Subscribe(t, ch)
	}
	defer func() {
		for _, t := range hubEvents {
			bus.Unsubscribe(t, ch)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.ctx.Done():
			return nil
		case evt := <-ch:
			h.broadcast(h.eventMessage(evt))
		}
	}
}

func (h *Hub) eventMessage(evt events.Event) ServerMessage {
	msg := ServerMessage{
		Type:      MessageEvent,
		Event:     string(evt.Type),
		Timestamp: evt.Timestamp,
		Payload:   evt.Payload,
	}
	if ctrl := h.commander(); ctrl != nil {
		snap := ctrl.Snapshot()
		msg.Snapshot = &snap
	}
	return msg
}

func (h *Hub) broadcast(msg ServerMessage) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(msg)
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(h.ctx, uuid.New().String(), conn, h.log)
	h.register(c)
	defer func() {
		h.unregister(c)
		c.close()
	}()

	c.enqueue(h.snapshotMessage())
	c.readLoop(func(msg ClientMessage) { h.handle(c, msg) })
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	metricClients.Inc()
	c.log.Info("client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()
	if ok {
		metricClients.Dec()
		c.log.Info("client disconnected")
	}
}

func (h *Hub) snapshotMessage() ServerMessage {
	msg := ServerMessage{Type: MessageSnapshot, Timestamp: time.Now()}
	if ctrl := h.commander(); ctrl != nil {
		snap := ctrl.Snapshot()
		msg.Snapshot = &snap
	}
	return msg
}

func (h *Hub) handle(c *client, msg ClientMessage) {
	metricCommands.WithLabelValues(msg.Type).Inc()
	c.log.Debug("command received", "type", msg.Type, "kind", msg.Kind)

	if msg.Type == CommandInteraction {
		kind, ok := parseKind(msg.Kind)
		if !ok {
			c.enqueue(errorMessage("unknown interaction kind: " + msg.Kind))
			return
		}
		h.Interact(kind)
		return
	}

	ctrl := h.commander()
	if ctrl == nil {
		c.enqueue(errorMessage("controller not ready"))
		return
	}

	switch msg.Type {
	case CommandRetry:
		ctrl.RetryAcquire()
	case CommandToggleMute:
		ctrl.ToggleMute()
	case CommandSnapshot:
		c.enqueue(h.snapshotMessage())
	default:
		c.enqueue(errorMessage("unknown command: " + msg.Type))
	}
}

func errorMessage(text string) ServerMessage {
	return ServerMessage{Type: MessageError, Timestamp: time.Now(), Error: text}
}

func parseKind(s string) (playback.InteractionKind, bool) {
	switch playback.InteractionKind(s) {
	case "", playback.InteractionClick:
		return playback.InteractionClick, true
	case playback.InteractionTouch:
		return playback.InteractionTouch, true
	case playback.InteractionKey:
		return playback.InteractionKey, true
	}
	return "", false
}

// OnInteraction implements playback.InteractionSource. Callbacks run in
// registration order on the goroutine of the reporting client.
func (h *Hub) OnInteraction(fn func(playback.Interaction)) (cancel func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Interact delivers a gesture to every registered callback.
func (h *Hub) Interact(kind playback.InteractionKind) {
	h.mu.RLock()
	ids := make([]uint64, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	slices.Sort(ids)

	i := playback.Interaction{Kind: kind, At: time.Now()}
	for _, id := range ids {
		h.mu.RLock()
		fn, ok := h.listeners[id]
		h.mu.RUnlock()
		if ok {
			fn(i)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops Run.
func (h *Hub) Close() {
	h.cancel()

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.close()
	}
}

var _ playback.InteractionSource = (*Hub)(nil)
