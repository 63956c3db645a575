// Package capture acquires local camera and microphone streams and owns their
// teardown.
//
// Streams returned by Manager.Acquire are self-owned: only Manager.Release
// stops their tracks. Streams from anywhere else are never touched.
package capture

import (
	"context"
	"sync"

	"github.com/realtime-ai/streamview/pkg/logger"
	"github.com/realtime-ai/streamview/pkg/media"
	"github.com/realtime-ai/streamview/pkg/trace"
)

// Capturer is the platform's device access primitive. On failure it may
// return a partially built stream alongside the error; the Manager stops it.
type Capturer interface {
	Capture(ctx context.Context, c Constraints) (*media.Stream, error)
}

// CapturerFunc adapts a function to Capturer.
type CapturerFunc func(ctx context.Context, c Constraints) (*media.Stream, error)

func (f CapturerFunc) Capture(ctx context.Context, c Constraints) (*media.Stream, error) {
	return f(ctx, c)
}

// Manager tracks the streams it acquired.
type Manager struct {
	capturer Capturer
	log      logger.Logger

	mu      sync.Mutex
	owned   map[*media.Stream]struct{}
	partial []*media.Stream
}

func NewManager(capturer Capturer, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		capturer: capturer,
		log:      log.With("component", "capture"),
		owned:    make(map[*media.Stream]struct{}),
	}
}

// Acquire requests a device stream. Any partial stream left by an earlier
// failed attempt is stopped before the new request is issued. Failures are
// returned as *AcquisitionError.
func (m *Manager) Acquire(ctx context.Context, c Constraints) (*media.Stream, error) {
	m.releasePartial()

	ctx, span := trace.InstrumentAcquire(ctx, trace.CaptureAttrs(c.Width, c.Height, c.FrameRate, c.SampleRate)...)
	defer span.End()

	m.log.Info("acquiring capture devices", "video", c.Video, "audio", c.Audio)
	stream, err := m.capturer.Capture(ctx, c)
	if err != nil {
		acqErr := classify(err)
		if stream != nil {
			m.mu.Lock()
			m.partial = append(m.partial, stream)
			m.mu.Unlock()
			m.releasePartial()
		}
		metricAcquisitions.WithLabelValues(string(acqErr.Reason)).Inc()
		span.SetAttributes(trace.AttrFailureReason(string(acqErr.Reason)))
		trace.RecordError(span, acqErr)
		m.log.Warn("capture failed", "reason", acqErr.Reason, "error", acqErr.Err, "trace_id", trace.TraceID(ctx))
		return nil, acqErr
	}

	m.mu.Lock()
	m.owned[stream] = struct{}{}
	m.mu.Unlock()

	metricAcquisitions.WithLabelValues("ok").Inc()
	metricOwnedStreams.Inc()
	span.SetAttributes(trace.StreamAttrs(stream.ID(), true, len(stream.AudioTracks()), len(stream.VideoTracks()))...)
	m.log.Info("capture acquired",
		"stream_id", stream.ID(),
		"audio_tracks", len(stream.AudioTracks()),
		"video_tracks", len(stream.VideoTracks()))
	return stream, nil
}

// Owns reports whether stream was acquired here and not yet released.
func (m *Manager) Owns(stream *media.Stream) bool {
	if stream == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.owned[stream]
	return ok
}

// Release stops every track on a self-owned stream. Releasing an externally
// owned or already released stream does nothing.
func (m *Manager) Release(stream *media.Stream) {
	if stream == nil {
		return
	}

	m.mu.Lock()
	_, ok := m.owned[stream]
	delete(m.owned, stream)
	m.mu.Unlock()

	if !ok {
		m.log.Debug("release ignored, stream not owned", "stream_id", stream.ID())
		return
	}

	metricOwnedStreams.Dec()
	m.stopTracks(stream)
	m.log.Info("capture released", "stream_id", stream.ID())
}

// ReleaseAll releases every owned stream and any leftover partial stream.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	streams := make([]*media.Stream, 0, len(m.owned))
	for s := range m.owned {
		streams = append(streams, s)
	}
	m.mu.Unlock()

	for _, s := range streams {
		m.Release(s)
	}
	m.releasePartial()
}

func (m *Manager) releasePartial() {
	m.mu.Lock()
	partial := m.partial
	m.partial = nil
	m.mu.Unlock()

	for _, s := range partial {
		m.log.Info("releasing partial capture", "stream_id", s.ID())
		m.stopTracks(s)
	}
}

func (m *Manager) stopTracks(stream *media.Stream) {
	for _, t := range stream.Tracks() {
		if err := t.Stop(); err != nil {
			m.log.Warn("failed to stop track", "stream_id", stream.ID(), "track_id", t.ID(), "error", err)
			continue
		}
		metricTracksStopped.Inc()
	}
}
