package playback

import (
	"context"
	"sync"
	"time"

	"github.com/realtime-ai/streamview/pkg/media"
)

// MockSink is a Sink for tests. Play returns the queued errors in order and
// succeeds once they run out.
type MockSink struct {
	mu       sync.Mutex
	stream   *media.Stream
	playErrs []error
	muted    bool
	volume   float64
	playing  bool

	attachCalls int
	detachCalls int
	playCalls   int
	// history of muted flag at each Play call
	playMuted []bool
}

// NewMockSink creates a MockSink whose Play calls fail with errs in order.
func NewMockSink(errs ...error) *MockSink {
	return &MockSink{playErrs: errs, volume: 1}
}

func (s *MockSink) Attach(stream *media.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = stream
	s.playing = false
	s.attachCalls++
	return nil
}

func (s *MockSink) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = nil
	s.playing = false
	s.detachCalls++
}

func (s *MockSink) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playCalls++
	s.playMuted = append(s.playMuted, s.muted)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.playErrs) > 0 {
		err := s.playErrs[0]
		s.playErrs = s.playErrs[1:]
		if err != nil {
			return err
		}
	}
	s.playing = true
	return nil
}

func (s *MockSink) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

func (s *MockSink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *MockSink) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
}

// QueuePlayErrors appends errors for upcoming Play calls.
func (s *MockSink) QueuePlayErrors(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playErrs = append(s.playErrs, errs...)
}

func (s *MockSink) Stream() *media.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

func (s *MockSink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *MockSink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *MockSink) AttachCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachCalls
}

func (s *MockSink) DetachCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detachCalls
}

func (s *MockSink) PlayCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playCalls
}

// PlayMuted returns the muted flag seen by each Play call.
func (s *MockSink) PlayMuted() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.playMuted...)
}

// ManualInteractions is an InteractionSource driven by Interact.
type ManualInteractions struct {
	mu        sync.Mutex
	next      uint64
	listeners map[uint64]func(Interaction)
}

func NewManualInteractions() *ManualInteractions {
	return &ManualInteractions{listeners: make(map[uint64]func(Interaction))}
}

func (m *ManualInteractions) OnInteraction(fn func(Interaction)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := m.next
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Interact delivers a gesture to every registered callback.
func (m *ManualInteractions) Interact(kind InteractionKind) {
	m.mu.Lock()
	fns := make([]func(Interaction), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	i := Interaction{Kind: kind, At: time.Now()}
	for _, fn := range fns {
		fn(i)
	}
}

// Listeners returns the number of registered callbacks.
func (m *ManualInteractions) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

var (
	_ Sink              = (*MockSink)(nil)
	_ InteractionSource = (*ManualInteractions)(nil)
)
