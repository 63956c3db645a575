package trace

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttrStreamID    = "stream.id"
	AttrStreamOwned = "stream.owned"
	AttrAudioTracks = "stream.audio_tracks"
	AttrVideoTracks = "stream.video_tracks"

	AttrCaptureWidth      = "capture.width"
	AttrCaptureHeight     = "capture.height"
	AttrCaptureFrameRate  = "capture.frame_rate"
	AttrCaptureSampleRate = "capture.sample_rate"
	AttrCaptureReason     = "capture.failure_reason"

	AttrPlaybackOutcome = "playback.outcome"
	AttrAutoUnmute      = "playback.auto_unmute"

	AttrSessionID = "vad.session_id"
	AttrThreshold = "vad.threshold"

	AttrStateFrom = "state.from"
	AttrStateTo   = "state.to"
	AttrRemote    = "presentation.remote"
)

// StreamAttrs describes a stream's identity and track counts.
func StreamAttrs(streamID string, owned bool, audioTracks, videoTracks int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStreamID, streamID),
		attribute.Bool(AttrStreamOwned, owned),
		attribute.Int(AttrAudioTracks, audioTracks),
		attribute.Int(AttrVideoTracks, videoTracks),
	}
}

// CaptureAttrs describes the ideal capture constraints.
func CaptureAttrs(width, height int, frameRate float64, sampleRate int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrCaptureWidth, width),
		attribute.Int(AttrCaptureHeight, height),
		attribute.Float64(AttrCaptureFrameRate, frameRate),
		attribute.Int(AttrCaptureSampleRate, sampleRate),
	}
}

// SessionAttrs describes an analysis session.
func SessionAttrs(sessionID, streamID string, threshold float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
		attribute.String(AttrStreamID, streamID),
		attribute.Float64(AttrThreshold, threshold),
	}
}

// AttrOutcome records how a playback start ended.
func AttrOutcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrPlaybackOutcome, outcome)
}

// AttrFailureReason records why a capture request failed.
func AttrFailureReason(reason string) attribute.KeyValue {
	return attribute.String(AttrCaptureReason, reason)
}

// AttrRemoteRole records the endpoint role of a controller.
func AttrRemoteRole(remote bool) attribute.KeyValue {
	return attribute.Bool(AttrRemote, remote)
}
