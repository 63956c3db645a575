// Package events carries the observable and diagnostic events emitted by the
// presentation core.
package events

import "time"

// EventType identifies the kind of an Event.
type EventType string

const (
	// EventStateChanged is published on every presentation state transition.
	// Payload: StatePayload.
	EventStateChanged EventType = "state.changed"

	// EventSpeakingChanged is published when the debounced voice-activity flag
	// flips. Payload: SpeakingPayload.
	EventSpeakingChanged EventType = "speaking.changed"

	// EventTrackSetChanged re-emits track add/remove notifications of the
	// active stream. Informational only. Payload: TrackSetPayload.
	EventTrackSetChanged EventType = "track.set_changed"

	// EventPlaybackBlocked is published when the platform refused to start
	// playback. Payload: PlaybackPayload.
	EventPlaybackBlocked EventType = "playback.blocked"

	// EventPlaybackUnlocked is published after a user interaction retried a
	// blocked playback. Payload: PlaybackPayload.
	EventPlaybackUnlocked EventType = "playback.unlocked"

	// EventAnalysisUnavailable is published when voice-activity analysis
	// could not start for the active stream. Payload: AnalysisPayload.
	EventAnalysisUnavailable EventType = "analysis.unavailable"

	// EventMuteChanged is published when the sink mute flag changes.
	// Payload: MutePayload.
	EventMuteChanged EventType = "mute.changed"
)

// Event is a single notification on the Bus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   interface{}
}

// StatePayload describes a state transition.
type StatePayload struct {
	From         string `json:"from"`
	To           string `json:"to"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// SpeakingPayload carries the new speaking flag.
type SpeakingPayload struct {
	SessionID string `json:"session_id"`
	Speaking  bool   `json:"speaking"`
}

// TrackSetPayload describes a change of the active stream's track set.
type TrackSetPayload struct {
	StreamID    string `json:"stream_id"`
	TrackID     string `json:"track_id"`
	Kind        string `json:"kind"`
	Added       bool   `json:"added"`
	AudioTracks int    `json:"audio_tracks"`
	VideoTracks int    `json:"video_tracks"`
}

// PlaybackPayload describes a playback outcome.
type PlaybackPayload struct {
	StreamID string `json:"stream_id"`
	Err      string `json:"error,omitempty"`
}

// AnalysisPayload describes why voice-activity analysis is unavailable.
type AnalysisPayload struct {
	StreamID string `json:"stream_id"`
	Reason   string `json:"reason,omitempty"`
}

// MutePayload carries the new mute flag.
type MutePayload struct {
	Muted bool `json:"muted"`
}
