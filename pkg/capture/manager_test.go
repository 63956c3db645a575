package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtime-ai/streamview/pkg/media"
)

type stubTrack struct {
	id      string
	kind    media.Kind
	mu      sync.Mutex
	stops   int
	stopErr error
}

func (t *stubTrack) ID() string       { return t.id }
func (t *stubTrack) Kind() media.Kind { return t.kind }
func (t *stubTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	return t.stopErr
}

func (t *stubTrack) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

func deviceStream() (*media.Stream, *stubTrack, *stubTrack) {
	a := &stubTrack{id: "mic", kind: media.KindAudio}
	v := &stubTrack{id: "cam", kind: media.KindVideo}
	return media.NewStream("", v, a), a, v
}

func TestAcquireSuccess(t *testing.T) {
	stream, _, _ := deviceStream()
	var got Constraints
	m := NewManager(CapturerFunc(func(_ context.Context, c Constraints) (*media.Stream, error) {
		got = c
		return stream, nil
	}), nil)

	s, err := m.Acquire(context.Background(), DefaultConstraints())
	require.NoError(t, err)
	assert.Same(t, stream, s)
	assert.True(t, m.Owns(s))
	assert.Equal(t, 640, got.Width)
	assert.Equal(t, 480, got.Height)
	assert.Equal(t, 30.0, got.FrameRate)
	assert.Equal(t, 16000, got.SampleRate)
	assert.Equal(t, 1, got.ChannelCount)
	assert.True(t, got.EchoCancellation)
	assert.True(t, got.NoiseSuppression)
}

func TestAcquireFailureReturnsAcquisitionError(t *testing.T) {
	m := NewManager(CapturerFunc(func(context.Context, Constraints) (*media.Stream, error) {
		return nil, fmt.Errorf("getUserMedia: %w", ErrPermissionDenied)
	}), nil)

	s, err := m.Acquire(context.Background(), DefaultConstraints())
	assert.Nil(t, s)

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, ReasonPermissionDenied, acqErr.Reason)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, "getUserMedia: permission denied", err.Error())
}

func TestRetryAfterFailuresLeaksNothing(t *testing.T) {
	const attempts = 5
	var (
		partials []*stubTrack
		leaked   bool
	)
	m := NewManager(CapturerFunc(func(context.Context, Constraints) (*media.Stream, error) {
		for _, p := range partials {
			if p.Stops() == 0 {
				leaked = true
			}
		}
		cam := &stubTrack{id: fmt.Sprintf("cam-%d", len(partials)), kind: media.KindVideo}
		partials = append(partials, cam)
		return media.NewStream("", cam), errors.New("microphone not found")
	}), nil)

	for i := 0; i < attempts; i++ {
		_, err := m.Acquire(context.Background(), DefaultConstraints())
		var acqErr *AcquisitionError
		require.ErrorAs(t, err, &acqErr)
		assert.Equal(t, ReasonNoDevice, acqErr.Reason)
	}

	assert.False(t, leaked, "a partial stream was still live when the next request was issued")
	require.Len(t, partials, attempts)
	for _, p := range partials {
		assert.Equal(t, 1, p.Stops(), "partial %s must be stopped exactly once", p.id)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	stream, audio, video := deviceStream()
	m := NewManager(CapturerFunc(func(context.Context, Constraints) (*media.Stream, error) {
		return stream, nil
	}), nil)

	s, err := m.Acquire(context.Background(), DefaultConstraints())
	require.NoError(t, err)

	m.Release(s)
	m.Release(s)
	m.Release(nil)

	assert.False(t, m.Owns(s))
	assert.Equal(t, 1, audio.Stops())
	assert.Equal(t, 1, video.Stops())
}

func TestReleaseStopsTracksAddedLater(t *testing.T) {
	stream, _, _ := deviceStream()
	m := NewManager(CapturerFunc(func(context.Context, Constraints) (*media.Stream, error) {
		return stream, nil
	}), nil)

	s, err := m.Acquire(context.Background(), DefaultConstraints())
	require.NoError(t, err)

	extra := &stubTrack{id: "screen", kind: media.KindVideo}
	s.AddTrack(extra)
	m.Release(s)
	assert.Equal(t, 1, extra.Stops())
}

func TestReleaseNeverStopsExternalStreams(t *testing.T) {
	m := NewManager(CapturerFunc(func(context.Context, Constraints) (*media.Stream, error) {
		return nil, errors.New("unused")
	}), nil)

	external, audio, video := deviceStream()
	m.Release(external)
	m.ReleaseAll()

	assert.False(t, m.Owns(external))
	assert.Equal(t, 0, audio.Stops())
	assert.Equal(t, 0, video.Stops())
}

func TestReleaseToleratesStopErrors(t *testing.T) {
	bad := &stubTrack{id: "cam", kind: media.KindVideo, stopErr: errors.New("device busy")}
	good := &stubTrack{id: "mic", kind: media.KindAudio}
	m := NewManager(CapturerFunc(func(context.Context, Constraints) (*media.Stream, error) {
		return media.NewStream("", bad, good), nil
	}), nil)

	s, err := m.Acquire(context.Background(), DefaultConstraints())
	require.NoError(t, err)
	assert.NotPanics(t, func() { m.Release(s) })
	assert.Equal(t, 1, good.Stops())
}

func TestReleaseAll(t *testing.T) {
	var tracks []*stubTrack
	m := NewManager(CapturerFunc(func(context.Context, Constraints) (*media.Stream, error) {
		tr := &stubTrack{id: fmt.Sprintf("mic-%d", len(tracks)), kind: media.KindAudio}
		tracks = append(tracks, tr)
		return media.NewStream("", tr), nil
	}), nil)

	for i := 0; i < 3; i++ {
		_, err := m.Acquire(context.Background(), DefaultConstraints())
		require.NoError(t, err)
	}
	m.ReleaseAll()
	for _, tr := range tracks {
		assert.Equal(t, 1, tr.Stops())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"permission sentinel", ErrPermissionDenied, ReasonPermissionDenied},
		{"no device sentinel", fmt.Errorf("x: %w", ErrNoDevice), ReasonNoDevice},
		{"constraints sentinel", ErrConstraintsUnsatisfiable, ReasonConstraintsUnsatisfiable},
		{"permission text", errors.New("NotAllowedError: Permission denied"), ReasonPermissionDenied},
		{"driver text", errors.New("failed to find the best driver that fits the constraints"), ReasonConstraintsUnsatisfiable},
		{"unknown", errors.New("ioctl failed"), ReasonPlatform},
		{"already classified", &AcquisitionError{Reason: ReasonNoDevice, Err: errors.New("x")}, ReasonNoDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err).Reason)
		})
	}
}

func TestAcquisitionErrorMessage(t *testing.T) {
	assert.Equal(t, "no device", (&AcquisitionError{Reason: ReasonNoDevice}).Error())
	assert.Equal(t, "boom", (&AcquisitionError{Reason: ReasonPlatform, Err: errors.New("boom")}).Error())
}
