// Package vad derives a debounced "speaking" signal from the frequency
// magnitudes of a stream's audio.
//
// A Monitor owns at most one Session at a time. Each Session samples an
// AnalysisNode once per tick, compares the mean bin magnitude against a
// threshold and holds the signal true until a silence timer expires.
package vad

import (
	"errors"

	"github.com/realtime-ai/streamview/pkg/media"
)

var (
	// ErrNoAudioTrack is returned when the stream carries no audio.
	ErrNoAudioTrack = errors.New("vad: stream has no audio track")
	// ErrAnalysisUnavailable wraps any failure to build an AnalysisNode.
	ErrAnalysisUnavailable = errors.New("vad: analysis unavailable")
)

// AnalysisNode exposes the current frequency-bin magnitudes of an audio
// source on a 0..255 scale.
type AnalysisNode interface {
	// FrequencyBinCount is the number of bins ReadMagnitudes fills.
	FrequencyBinCount() int

	// ReadMagnitudes writes the current magnitudes into dst, which must hold
	// FrequencyBinCount bytes.
	ReadMagnitudes(dst []byte)

	// Close releases the node. The node must not be read afterwards.
	Close() error
}

// NodeFactory builds an AnalysisNode for a stream's audio.
type NodeFactory interface {
	CreateAnalysisNode(stream *media.Stream) (AnalysisNode, error)
}

// NodeFactoryFunc adapts a function to NodeFactory.
type NodeFactoryFunc func(stream *media.Stream) (AnalysisNode, error)

func (f NodeFactoryFunc) CreateAnalysisNode(stream *media.Stream) (AnalysisNode, error) {
	return f(stream)
}
