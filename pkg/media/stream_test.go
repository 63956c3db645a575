package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTrack struct {
	id   string
	kind Kind
}

func (t *stubTrack) ID() string  { return t.id }
func (t *stubTrack) Kind() Kind  { return t.kind }
func (t *stubTrack) Stop() error { return nil }

func TestNewStreamAssignsID(t *testing.T) {
	s := NewStream("")
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "cam", NewStream("cam").ID())
}

func TestStreamSplitsTracksByKind(t *testing.T) {
	s := NewStream("s",
		&stubTrack{id: "v1", kind: KindVideo},
		&stubTrack{id: "a1", kind: KindAudio},
		&stubTrack{id: "a2", kind: KindAudio},
	)

	require.Len(t, s.AudioTracks(), 2)
	assert.Equal(t, "a1", s.AudioTracks()[0].ID())
	assert.Equal(t, "a2", s.AudioTracks()[1].ID())
	require.Len(t, s.VideoTracks(), 1)
	assert.Len(t, s.Tracks(), 3)
}

func TestStreamTrackSetNotifications(t *testing.T) {
	s := NewStream("s")
	var got []TrackEvent
	unsubscribe := s.OnTrackSetChanged(func(evt TrackEvent) {
		got = append(got, evt)
	})

	a := &stubTrack{id: "a", kind: KindAudio}
	s.AddTrack(a)
	s.AddTrack(a) // duplicate id ignored
	s.RemoveTrack(a)
	s.RemoveTrack(a) // already gone

	require.Len(t, got, 2)
	assert.True(t, got[0].Added)
	assert.Equal(t, "s", got[0].StreamID)
	assert.False(t, got[1].Added)

	unsubscribe()
	unsubscribe()
	s.AddTrack(a)
	assert.Len(t, got, 2)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "audio", KindAudio.String())
	assert.Equal(t, "video", KindVideo.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
