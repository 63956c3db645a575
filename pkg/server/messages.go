package server

import (
	"time"

	"github.com/realtime-ai/streamview/pkg/presentation"
)

// Client message types.
const (
	CommandRetry       = "retry"
	CommandToggleMute  = "toggle_mute"
	CommandInteraction = "interaction"
	CommandSnapshot    = "snapshot"
)

// Server message types.
const (
	MessageSnapshot = "snapshot"
	MessageEvent    = "event"
	MessageError    = "error"
)

// ClientMessage is a command sent by a presentation client.
type ClientMessage struct {
	Type string `json:"type"`
	// Kind is the gesture for CommandInteraction: click, touch or key.
	Kind string `json:"kind,omitempty"`
}

// ServerMessage is pushed to every connected client. Snapshot is always set
// so a client can render from any single message.
type ServerMessage struct {
	Type      string                 `json:"type"`
	Event     string                 `json:"event,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   interface{}            `json:"payload,omitempty"`
	Snapshot  *presentation.Snapshot `json:"snapshot,omitempty"`
	Error     string                 `json:"error,omitempty"`
}
