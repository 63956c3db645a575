// Package playback starts rendering of a stream and recovers from platform
// autoplay restrictions.
//
// A blocked start is not an error. When asked to, the Policy arms a single
// binding on an InteractionSource; the next user interaction unmutes the
// sink, raises its volume and retries playback once.
package playback

import (
	"context"
	"errors"
	"time"

	"github.com/realtime-ai/streamview/pkg/media"
)

// ErrAutoplayBlocked is returned by Sink.Play when the platform refuses to
// start audible playback without a prior user gesture.
var ErrAutoplayBlocked = errors.New("playback: autoplay blocked")

// Sink renders a stream.
type Sink interface {
	// Attach binds stream to the sink, replacing any previous one.
	Attach(stream *media.Stream) error
	Detach()
	// Play starts rendering the attached stream.
	Play(ctx context.Context) error
	SetMuted(muted bool)
	Muted() bool
	// SetVolume sets the output gain, 0..1.
	SetVolume(volume float64)
}

// InteractionKind names the user gesture that produced an Interaction.
type InteractionKind string

const (
	InteractionClick InteractionKind = "click"
	InteractionTouch InteractionKind = "touch"
	InteractionKey   InteractionKind = "key"
)

// Unlocks reports whether the gesture may unlock audible playback. Only
// clicks and touches do; key presses are delivered but ignored.
func (k InteractionKind) Unlocks() bool {
	return k == InteractionClick || k == InteractionTouch
}

// Interaction is a user gesture reported by the presentation layer.
type Interaction struct {
	Kind InteractionKind
	At   time.Time
}

// InteractionSource delivers user gestures. The returned cancel func removes
// the callback; it must be safe to call more than once.
type InteractionSource interface {
	OnInteraction(fn func(Interaction)) (cancel func())
}
