package media

import (
	"sync"

	"github.com/google/uuid"
)

// TrackEvent reports a change to a stream's track set.
type TrackEvent struct {
	StreamID string
	Track    Track
	Added    bool
}

// Stream is a handle to zero or more tracks. Tracks may be added or removed at
// any time; observers registered with OnTrackSetChanged are notified after
// each change. A Stream carries no ownership information: whoever acquired it
// decides who may stop its tracks.
type Stream struct {
	id string

	mu       sync.RWMutex
	tracks   []Track
	handlers map[uint64]func(TrackEvent)
	nextID   uint64
}

// NewStream creates a stream holding tracks. An empty id gets a random one.
func NewStream(id string, tracks ...Track) *Stream {
	if id == "" {
		id = uuid.NewString()
	}
	return &Stream{
		id:       id,
		tracks:   append([]Track(nil), tracks...),
		handlers: make(map[uint64]func(TrackEvent)),
	}
}

func (s *Stream) ID() string {
	return s.id
}

// Tracks returns a snapshot of every track in insertion order.
func (s *Stream) Tracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Track(nil), s.tracks...)
}

func (s *Stream) AudioTracks() []Track {
	return s.tracksOfKind(KindAudio)
}

func (s *Stream) VideoTracks() []Track {
	return s.tracksOfKind(KindVideo)
}

func (s *Stream) tracksOfKind(kind Kind) []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Track
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// AddTrack appends t unless a track with the same id is already present.
func (s *Stream) AddTrack(t Track) {
	s.mu.Lock()
	for _, existing := range s.tracks {
		if existing.ID() == t.ID() {
			s.mu.Unlock()
			return
		}
	}
	s.tracks = append(s.tracks, t)
	handlers := s.handlersLocked()
	s.mu.Unlock()

	s.notify(handlers, TrackEvent{StreamID: s.id, Track: t, Added: true})
}

// RemoveTrack removes the track with t's id. The track is not stopped.
func (s *Stream) RemoveTrack(t Track) {
	s.mu.Lock()
	removed := false
	for i, existing := range s.tracks {
		if existing.ID() == t.ID() {
			s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		s.mu.Unlock()
		return
	}
	handlers := s.handlersLocked()
	s.mu.Unlock()

	s.notify(handlers, TrackEvent{StreamID: s.id, Track: t, Added: false})
}

// OnTrackSetChanged registers fn for track add/remove notifications. fn runs
// on the goroutine that mutated the stream. The returned func unregisters it.
func (s *Stream) OnTrackSetChanged(fn func(TrackEvent)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.handlers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Stream) handlersLocked() []func(TrackEvent) {
	out := make([]func(TrackEvent), 0, len(s.handlers))
	for _, h := range s.handlers {
		out = append(out, h)
	}
	return out
}

func (s *Stream) notify(handlers []func(TrackEvent), evt TrackEvent) {
	for _, h := range handlers {
		h(evt)
	}
}
